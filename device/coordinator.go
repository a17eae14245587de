package device

import (
	"strconv"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/c1moore/SmartLights/dcp"
	"github.com/c1moore/SmartLights/sched"
)

const (
	// DefaultServer and DefaultPort locate the Master node.
	DefaultServer = "devices.c1moore.codes"
	DefaultPort   = 80

	// unregisteredSession stamps requests sent before the Master has assigned
	// this device a session.
	unregisteredSession = "0"
)

// UpdateHandler receives the body of an update the Master has pending for a
// registered output.
type UpdateHandler func(data string)

// subDevice is one registered sensor or output.
type subDevice struct {
	id       string
	typeName string
	isOutput bool
	handler  UpdateHandler
}

// Coordinator is responsible for communicating with the Master node. It
// registers the device and its sub-devices, relays sensor updates, and polls
// for output updates. It does not parse application data or decide how to
// respond to the Master beyond meta communication.
//
// Coordinator is a Runnable; schedule it at an interval so connection upkeep
// and output polling happen in the background.
type Coordinator struct {
	scheduler *sched.Scheduler
	stream    dcp.ByteStream
	store     *DIDStore

	server string
	port   int

	did       uint8
	sessionID string

	// subDevices maps sub-device ID to its registration, in registration
	// order so polling stays deterministic.
	subDevices *linkedhashmap.Map
}

// NewCoordinator wires a Coordinator to its scheduler, transport, and
// persistent identity. The previously assigned device ID, if any, is loaded
// from the store; a fresh device holds ID 0 until its first successful
// registration.
func NewCoordinator(scheduler *sched.Scheduler, stream dcp.ByteStream, store *DIDStore, server string, port int) *Coordinator {
	if server == "" {
		server = DefaultServer
	}

	if port == 0 {
		port = DefaultPort
	}

	c := &Coordinator{
		scheduler:  scheduler,
		stream:     stream,
		store:      store,
		server:     server,
		port:       port,
		sessionID:  unregisteredSession,
		subDevices: linkedhashmap.New(),
	}

	if store != nil {
		c.did = store.ReadDeviceID()
	}

	return c
}

// DeviceID returns the Master-assigned device ID, or 0 before registration.
func (c *Coordinator) DeviceID() uint8 {
	return c.did
}

// SessionID returns the session assigned at registration.
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// RegisterSensor registers a new sensor with the Master node and returns the
// sub-device ID it was assigned, or an empty string when registration did
// not succeed.
func (c *Coordinator) RegisterSensor(t SensorType) string {
	return c.registerSubDevice("/sensors", t.String(), false)
}

// RegisterOutput registers a new output device with the Master node and
// returns the sub-device ID it was assigned, or an empty string when
// registration did not succeed.
func (c *Coordinator) RegisterOutput(t OutputType) string {
	return c.registerSubDevice("/outputs", t.String(), true)
}

// OnUpdate installs the handler invoked with update bodies the Master has
// pending for the given output.
func (c *Coordinator) OnUpdate(subDeviceID string, handler UpdateHandler) {
	if value, ok := c.subDevices.Get(subDeviceID); ok {
		value.(*subDevice).handler = handler
	}
}

// SendUpdate sends the provided data to the Master node for processing on
// behalf of the given sub-device.
func (c *Coordinator) SendUpdate(subDeviceID, data string) *dcp.Response {
	req := dcp.NewRequest(dcp.POST, "/updates/"+subDeviceID, c.sessionID)
	req.SetBody(data)

	return c.roundTrip(req)
}

// RequestUpdate asks the Master node for a pending update for the given
// sub-device. data is optional context for the Master and may be empty.
func (c *Coordinator) RequestUpdate(subDeviceID, data string) *dcp.Response {
	req := dcp.NewRequest(dcp.GET, "/updates/"+subDeviceID, c.sessionID)
	req.SetBody(data)

	return c.roundTrip(req)
}

// Run is the Coordinator's scheduler entry point. Each pass keeps the
// connection and registration alive and polls registered outputs for
// pending updates, delivering bodies to their handlers.
func (c *Coordinator) Run() int {
	if !c.ensureRegistered() {
		return 0
	}

	c.subDevices.Each(func(key, value interface{}) {
		sub := value.(*subDevice)
		if !sub.isOutput || sub.handler == nil {
			return
		}

		resp := c.RequestUpdate(sub.id, "")
		if resp.StatusCode == dcp.Success && resp.ContentLength > 0 {
			sub.handler(resp.Data)
		}
	})

	return 0
}

func (c *Coordinator) registerSubDevice(resource, typeName string, isOutput bool) string {
	if !c.ensureRegistered() {
		return ""
	}

	req := dcp.NewRequest(dcp.POST, resource, c.sessionID)
	req.SetBody(typeName)

	resp := c.roundTrip(req)
	if resp.StatusCode != dcp.Success && resp.StatusCode != dcp.SuccessNoContent {
		return ""
	}

	id := resp.SubDeviceID
	if id == "" {
		return ""
	}

	c.subDevices.Put(id, &subDevice{
		id:       id,
		typeName: typeName,
		isOutput: isOutput,
	})

	return id
}

// ensureRegistered makes sure the device holds a Master-assigned identity.
// A fresh device posts /register with the placeholder session; the response
// carries the assigned device ID in its DEVICE_ID field and the session ID
// in its body. The device ID is persisted, but the session is held only in
// memory, so every boot registers once more before its first request.
func (c *Coordinator) ensureRegistered() bool {
	c.ensureConnected()

	if c.did != 0 && c.sessionID != unregisteredSession {
		return true
	}

	req := dcp.NewRequest(dcp.POST, "/register", c.sessionID)

	resp := c.roundTrip(req)
	if resp.StatusCode != dcp.Success {
		return false
	}

	did, err := strconv.Atoi(resp.DeviceID)
	if err != nil || did <= 0 || did > 255 {
		return false
	}

	if resp.Data == "" {
		return false
	}

	c.did = uint8(did)
	c.sessionID = resp.Data

	if c.store != nil {
		c.store.WriteDeviceID(c.did)
	}

	return true
}

// ensureConnected blocks cooperatively until the stream reaches the Master,
// yielding between attempts so the rest of the device keeps running. Connect
// failures never surface as values; an unreachable Master just means the
// device keeps trying.
func (c *Coordinator) ensureConnected() {
	if c.stream.Connected() {
		return
	}

	for !c.stream.Connect(c.server, c.port) {
		c.scheduler.Yield()
	}
}

func (c *Coordinator) roundTrip(req *dcp.Request) *dcp.Response {
	c.ensureConnected()

	return req.Send(c.stream, c.scheduler)
}
