// Command smartlights runs the device runtime on a hosted platform: it wires
// the scheduler, the TCP transport to the Master, and the Coordinator, then
// hands the main loop to the scheduler.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/c1moore/SmartLights/config"
	"github.com/c1moore/SmartLights/device"
	"github.com/c1moore/SmartLights/sched"
	"github.com/c1moore/SmartLights/transport"
)

func main() {
	path := "smartlights.yml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg := config.Load(path)

	scheduler := sched.Get()
	scheduler.EnableClock(cfg.EnableClock)
	sched.SetDebugWriter(func(msg string) { fmt.Println(msg) })

	if cfg.EnableClock {
		clock := sched.NewTickClock()
		clock.Start(scheduler, time.Duration(cfg.TickMS)*time.Millisecond)
	}

	store := device.NewDIDStore(device.NewFileEEPROM(cfg.EEPROMPath), 0)
	stream := transport.NewTCPStream()

	coordinator := device.NewCoordinator(scheduler, stream, store, cfg.Server, cfg.Port)

	// The Coordinator keeps the connection, registration, and output polling
	// alive once a second.
	if pid := scheduler.ScheduleInterval(coordinator, 1000, -1, 5); pid < 0 {
		fmt.Println("failed to schedule coordinator:", pid)
		os.Exit(1)
	}

	scheduler.Start()
}
