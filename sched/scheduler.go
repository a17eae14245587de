package sched

import (
	"runtime"
	"sync"
)

const (
	// MaxProcesses bounds the process table. If you need this many processes
	// on one MCU, you may want to reconsider your design.
	MaxProcesses = 128

	// MinInterval is the smallest interval, in milliseconds, at which a
	// process may repeat or sleep reliably. Platform-tunable; the ESP8266
	// misbehaves below 3ms.
	MinInterval = 3

	// MinPriority and MaxPriority bound process priorities. A higher value
	// takes precedence over a lower one.
	MinPriority = 1
	MaxPriority = 15
)

// ProcessState is the lifecycle state of a process-table slot.
type ProcessState uint8

const (
	Dead      ProcessState = iota // slot is free; the process cannot execute again
	Ready                         // waiting in the ready list to execute
	Executing                     // currently holds the CPU
	Sleeping                      // waiting in the sleeping list for a delay to expire
	Suspended                     // parked; will not execute until readied
)

func (s ProcessState) String() string {
	switch s {
	case Dead:
		return "DEAD"
	case Ready:
		return "READY"
	case Executing:
		return "EXECUTING"
	case Sleeping:
		return "SLEEPING"
	case Suspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// process is one slot in the process table.
type process struct {
	runnable    Runnable
	state       ProcessState
	priority    int
	repetitions int
	interval    int
	resume      chan struct{} // CPU token handoff for this process's goroutine
}

// Scheduler multiplexes processes cooperatively on a single logical CPU.
// Exactly one context executes at any time: either Start's dispatch loop or
// the process it handed the CPU to. Processes cede control through Yield,
// Sleep, Suspend, or by returning from Run.
//
// Tick is the only entry point that may interleave with cooperative code; it
// is driven from the millisecond clock interrupt (a TickClock goroutine on
// hosted builds). Tick never runs a process itself. It publishes wake-ups
// into the ready list and the preemption happens at the running process's
// next reschedule point.
type Scheduler struct {
	mu sync.Mutex

	ptable       [MaxProcesses]process
	readyList    *PriorityQueue[int]
	sleepingList *DeltaList[int]

	currentPid   int
	nextValidPid int

	started      bool
	clockEnabled bool

	wakeCh chan struct{} // nudges the dispatch loop when a process becomes ready
	idleCh chan struct{} // returns the CPU token to the dispatch loop
	stopCh chan struct{}
	stop   sync.Once
}

var (
	instance     *Scheduler
	instanceOnce sync.Once
)

// Get returns the process-wide Scheduler instance.
func Get() *Scheduler {
	instanceOnce.Do(func() {
		instance = New()
	})

	return instance
}

// New creates an independent Scheduler. Most device code uses Get; separate
// instances exist for tests.
func New() *Scheduler {
	return &Scheduler{
		readyList:    NewPriorityQueue[int](),
		sleepingList: NewDeltaList[int](),
		currentPid:   -1,
		wakeCh:       make(chan struct{}, 1),
		idleCh:       make(chan struct{}),
		stopCh:       make(chan struct{}),
	}
}

// EnableClock turns the clock feature on or off. With the clock disabled,
// Sleep and ScheduleInterval fail with -1. The feature requires something to
// call Tick every millisecond, such as a TickClock or a hardware timer ISR.
func (s *Scheduler) EnableClock(enabled bool) {
	s.mu.Lock()
	s.clockEnabled = enabled
	s.mu.Unlock()
}

// CurrentPID returns the PID of the process currently executing, or -1 when
// the scheduler is idle.
func (s *Scheduler) CurrentPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentPid
}

// State reports the state of the given process-table slot. Out-of-range PIDs
// report Dead.
func (s *Scheduler) State(pid int) ProcessState {
	if pid < 0 || pid >= MaxProcesses {
		return Dead
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ptable[pid].state
}

// Schedule adds a new process in the Ready state. priority must be within
// [MinPriority, MaxPriority]; anything else fails with -2. A full process
// table fails with -1. Once the scheduler has started, scheduling yields so
// a higher-priority newcomer can take the CPU cooperatively.
func (s *Scheduler) Schedule(r Runnable, priority int) int {
	if priority < MinPriority || priority > MaxPriority {
		return -2
	}

	s.mu.Lock()

	pid := s.allocatePIDLocked()
	if pid < 0 {
		s.mu.Unlock()
		return -1
	}

	s.ptable[pid] = process{
		runnable: r,
		state:    Ready,
		priority: priority,
		resume:   make(chan struct{}),
	}

	// pid+1 may not be free right now, but it minimizes how often a PID is
	// reused.
	s.nextValidPid = (pid + 1) % MaxProcesses

	s.readyList.Enqueue(pid, priority)
	started := s.started

	s.mu.Unlock()

	go s.runProcess(pid)
	s.signalWake()

	debugf("schedule pid=" + itoa(pid))

	if started {
		s.Yield()
	}

	return pid
}

// ScheduleInterval adds a new process that executes every interval
// milliseconds. repetitions bounds how many times it runs; a negative value
// repeats indefinitely. The process starts in the Sleeping state and first
// runs one interval from now. Requires the clock feature (-1 when disabled);
// a negative interval or out-of-range priority fails with -2 and a full
// table with -1. Intervals below MinInterval are rounded up.
func (s *Scheduler) ScheduleInterval(r Runnable, interval, repetitions, priority int) int {
	s.mu.Lock()

	if !s.clockEnabled {
		s.mu.Unlock()
		return -1
	}

	if interval < 0 || priority < MinPriority || priority > MaxPriority {
		s.mu.Unlock()
		return -2
	}

	if interval < MinInterval {
		interval = MinInterval
	}

	pid := s.allocatePIDLocked()
	if pid < 0 {
		s.mu.Unlock()
		return -1
	}

	s.ptable[pid] = process{
		runnable:    r,
		state:       Sleeping,
		priority:    priority,
		repetitions: repetitions,
		interval:    interval,
		resume:      make(chan struct{}),
	}

	s.nextValidPid = (pid + 1) % MaxProcesses
	s.sleepingList.Insert(pid, interval)
	started := s.started

	s.mu.Unlock()

	go s.runProcess(pid)

	if started {
		s.Yield()
	}

	return pid
}

// Start takes over the main loop and never returns in normal operation; call
// it last in setup. Each pass hands a beat to the host, dispatches the
// highest-priority ready process, and waits for the CPU to come back. Stop
// makes Start return.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for {
		yieldHost()

		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()

		if s.readyList.IsEmpty() {
			s.mu.Unlock()

			select {
			case <-s.wakeCh:
			case <-s.stopCh:
				return
			}

			continue
		}

		pid := s.readyList.Dequeue()
		p := &s.ptable[pid]
		p.state = Executing
		s.currentPid = pid
		resume := p.resume

		s.mu.Unlock()

		resume <- struct{}{}

		select {
		case <-s.idleCh:
		case <-s.stopCh:
			return
		}
	}
}

// Stop halts the dispatch loop, making Start return. Processes already
// holding the CPU finish their current Run. Intended for hosted shutdown and
// tests; device builds run forever.
func (s *Scheduler) Stop() {
	s.stop.Do(func() { close(s.stopCh) })
}

// Tick notifies the scheduler that a millisecond has passed. Due sleepers
// move to the ready list; the dispatch loop is nudged if any woke. Safe to
// call from the clock interrupt context, and the only operation that is:
// Tick never executes a process.
func (s *Scheduler) Tick() {
	s.mu.Lock()

	if !s.clockEnabled {
		s.mu.Unlock()
		return
	}

	s.sleepingList.Decrement(1)

	woke := false
	for !s.sleepingList.IsEmpty() {
		if _, delta := s.sleepingList.Peek(); delta > 0 {
			break
		}

		pid := s.sleepingList.Remove()
		s.ptable[pid].state = Ready
		s.readyList.Enqueue(pid, s.ptable[pid].priority)
		woke = true
	}

	s.mu.Unlock()

	if woke {
		s.signalWake()
	}
}

// Yield offers the CPU to the ready list. The current process keeps running
// only if every ready process has strictly lower priority; on a tie the
// queued process wins, which is what rotates equal-priority processes.
func (s *Scheduler) Yield() {
	s.reschedule()
}

// Sleep pauses the current process for at least ms milliseconds. Requires
// the clock feature and a current process; failures return -1. The process
// resumes once Tick has drained its delay and the dispatcher selects it.
func (s *Scheduler) Sleep(ms int) int {
	s.mu.Lock()

	if !s.clockEnabled || s.currentPid < 0 {
		s.mu.Unlock()
		return -1
	}

	self := s.currentPid
	s.sleepingList.Insert(self, ms)
	s.ptable[self].state = Sleeping

	yieldHost()
	s.relinquishLocked(self)

	return 0
}

// Suspend parks the process identified by pid. Only Ready and Executing
// processes may be suspended; anything else fails with -1. Suspending the
// executing process cedes the CPU immediately.
func (s *Scheduler) Suspend(pid int) int {
	if pid < 0 || pid >= MaxProcesses {
		return -1
	}

	s.mu.Lock()
	p := &s.ptable[pid]

	switch p.state {
	case Ready:
		s.readyList.Remove(pid)
		p.state = Suspended
		s.mu.Unlock()

		return 0
	case Executing:
		if pid != s.currentPid {
			s.mu.Unlock()
			return -1
		}

		p.state = Suspended

		yieldHost()
		s.relinquishLocked(pid)

		return 0
	default:
		s.mu.Unlock()
		return -1
	}
}

// Ready marks a Suspended process runnable again. If it outranks the
// currently executing process, the caller reschedules so the newly readied
// process can preempt; ties do not preempt.
func (s *Scheduler) Ready(pid int) int {
	if pid < 0 || pid >= MaxProcesses {
		return -1
	}

	s.mu.Lock()
	p := &s.ptable[pid]

	if p.state != Suspended {
		s.mu.Unlock()
		return -1
	}

	p.state = Ready
	s.readyList.Enqueue(pid, p.priority)

	cur := s.currentPid
	preempt := cur >= 0 && p.priority > s.ptable[cur].priority

	s.mu.Unlock()

	s.signalWake()

	if preempt {
		s.reschedule()
	}

	return 0
}

// Kill marks the current process dead. The scheduler cannot unwind the
// caller's stack, so the process must return from Run promptly and attempt
// nothing further.
func (s *Scheduler) Kill() int {
	s.mu.Lock()

	if s.currentPid >= 0 {
		p := &s.ptable[s.currentPid]
		p.state = Dead
		p.repetitions = 0

		debugf("kill pid=" + itoa(s.currentPid))
	}

	s.mu.Unlock()

	return 0
}

// reschedule offers the CPU from the current process to the ready list. It
// acts only while the current process is still Executing; from any other
// state, or with no current process, it returns without a handoff. Sleep and
// Suspend change the caller's state and hand the CPU over through
// relinquishLocked instead.
func (s *Scheduler) reschedule() {
	yieldHost()

	s.mu.Lock()

	if s.readyList.IsEmpty() {
		s.mu.Unlock()
		return
	}

	self := s.currentPid
	if self < 0 || s.ptable[self].state != Executing {
		s.mu.Unlock()
		return
	}

	top := s.readyList.Peek()
	if s.ptable[top].priority < s.ptable[self].priority {
		s.mu.Unlock()
		return
	}

	s.ptable[self].state = Ready
	s.readyList.Enqueue(self, s.ptable[self].priority)

	s.relinquishLocked(self)
}

// relinquishLocked hands the CPU to the next ready process, or back to the
// dispatch loop when none is ready, then blocks until this process is
// dispatched again. Must be entered with mu held; mu is released before the
// handoff.
func (s *Scheduler) relinquishLocked(self int) {
	wait := s.ptable[self].resume

	if !s.readyList.IsEmpty() {
		next := s.readyList.Dequeue()
		p := &s.ptable[next]
		p.state = Executing
		s.currentPid = next
		resume := p.resume

		s.mu.Unlock()

		resume <- struct{}{}
	} else {
		s.currentPid = -1
		s.mu.Unlock()

		s.idleCh <- struct{}{}
	}

	<-wait
}

// runProcess is the parked goroutine backing one process-table slot. It
// wakes when dispatched, runs the process to completion, applies the
// post-execution bookkeeping, and returns the CPU to the dispatch loop.
func (s *Scheduler) runProcess(pid int) {
	s.mu.Lock()
	resume := s.ptable[pid].resume
	runnable := s.ptable[pid].runnable
	s.mu.Unlock()

	for {
		<-resume

		rc := runnable.Run()
		if rc != 0 {
			debugf("pid=" + itoa(pid) + " exited rc=" + itoa(rc))
		}

		s.mu.Lock()
		s.postExecuteLocked(pid)
		dead := s.ptable[pid].state == Dead
		s.currentPid = -1
		s.mu.Unlock()

		s.idleCh <- struct{}{}

		if dead {
			return
		}
	}
}

// postExecuteLocked updates a repeating process's slot after an iteration
// completes. One-shots die; finite repeaters count down and re-enter the
// sleeping list; indefinite repeaters always re-enter it.
func (s *Scheduler) postExecuteLocked(pid int) {
	p := &s.ptable[pid]

	if p.state == Dead {
		// Killed during Run.
		return
	}

	switch {
	case p.repetitions > 0:
		p.repetitions--
		if p.repetitions == 0 {
			p.state = Dead
			return
		}

		s.sleepingList.Insert(pid, p.interval)
		p.state = Sleeping
	case p.repetitions < 0:
		s.sleepingList.Insert(pid, p.interval)
		p.state = Sleeping
	default:
		p.state = Dead
	}
}

// allocatePIDLocked probes the process table for a free slot starting at the
// rotating hint. Returns -1 once the probe wraps back to the hint.
func (s *Scheduler) allocatePIDLocked() int {
	pid := s.nextValidPid

	for s.ptable[pid].state != Dead {
		pid = (pid + 1) % MaxProcesses

		if pid == s.nextValidPid {
			return -1
		}
	}

	return pid
}

func (s *Scheduler) signalWake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// yieldHost gives the hosting runtime a beat, the way the original firmware
// calls delay(0) so the underlying OS can service Wi-Fi and timers.
func yieldHost() {
	runtime.Gosched()
}
