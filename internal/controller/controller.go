package controller

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/mixdeck/mixdeck/internal/state"
)

// Status is the controller subscription state.
type Status string

const (
	StatusUnrequested Status = "unrequested"
	StatusRequesting  Status = "requesting"
	StatusConnected   Status = "connected"
	StatusUnsupported Status = "unsupported" // no MIDI capability on this host
	StatusDenied      Status = "denied"      // port exists but refused to open
)

// Callbacks receive decoded semantic events. The controller never mutates
// shared state itself; the caller decides what an event means.
type Callbacks struct {
	CrossfaderMove  func(value float64)
	TransportToggle func(deck state.Side)
	CueTrigger      func(deck state.Side)
}

// Controller owns one hardware-input subscription: device discovery,
// hot-plug handling, and raw-triple decoding.
type Controller struct {
	mapping     Mapping
	namePattern string
	rescanEvery time.Duration

	mu         sync.Mutex
	cb         Callbacks
	status     Status
	deviceName string
	drv        *rtmididrv.Driver
	inPort     drivers.In
	stopFn     func()
}

// New creates a controller preferring devices whose name contains
// namePattern (case-insensitive). With no name match it falls back to the
// first available input, so unrelated hardware still works.
func New(mapping Mapping, namePattern string, cb Callbacks) *Controller {
	return &Controller{
		mapping:     mapping,
		namePattern: namePattern,
		rescanEvery: 2 * time.Second,
		cb:          cb,
		status:      StatusUnrequested,
	}
}

// Status returns the subscription state and connected device name.
func (c *Controller) Status() (Status, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.deviceName
}

// SetCallbacks swaps the callback set. The message handler reads the latest
// set at dispatch time, so handlers registered mid-session take effect
// immediately.
func (c *Controller) SetCallbacks(cb Callbacks) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

// Run requests MIDI access and keeps a device connected until ctx ends.
// Missing capability or refused access degrade to a status flag; Run never
// returns an error because hardware control is optional.
func (c *Controller) Run(ctx context.Context) {
	c.setStatus(StatusRequesting, "")

	drv, err := rtmididrv.New()
	if err != nil {
		log.Printf("Controller: no MIDI capability: %v", err)
		c.setStatus(StatusUnsupported, "")
		return
	}
	c.mu.Lock()
	c.drv = drv
	c.mu.Unlock()
	defer drv.Close()

	ticker := time.NewTicker(c.rescanEvery)
	defer ticker.Stop()

	c.rescan()
	for {
		select {
		case <-ctx.Done():
			c.disconnect()
			return
		case <-ticker.C:
			c.rescan()
		}
	}
}

// rescan reconciles the connection with the current device list: reconnects
// after detach, connects on first attach, and stays put while the selected
// device remains present.
func (c *Controller) rescan() {
	ins, err := c.drv.Ins()
	if err != nil {
		log.Printf("Controller: enumerate inputs: %v", err)
		return
	}

	c.mu.Lock()
	connected := c.status == StatusConnected
	current := c.deviceName
	c.mu.Unlock()

	if connected {
		for _, in := range ins {
			if in.String() == current {
				return // still attached
			}
		}
		log.Printf("Controller: device %q detached", current)
		c.disconnect()
	}

	if len(ins) == 0 {
		return
	}
	c.open(c.pick(ins))
}

// pick prefers a name-pattern match and falls back to the first input.
func (c *Controller) pick(ins []drivers.In) drivers.In {
	if c.namePattern != "" {
		for _, in := range ins {
			if strings.Contains(strings.ToLower(in.String()), strings.ToLower(c.namePattern)) {
				return in
			}
		}
	}
	return ins[0]
}

func (c *Controller) open(in drivers.In) {
	if err := in.Open(); err != nil {
		log.Printf("Controller: open %q refused: %v", in.String(), err)
		c.setStatus(StatusDenied, "")
		return
	}

	name := in.String()
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		c.handle([]byte(msg))
	}, midi.HandleError(func(listenErr error) {
		// Listener errors usually mean the device vanished mid-stream;
		// the next rescan tick reconnects. Must not tear down from inside
		// the listener goroutine.
		log.Printf("Controller: listener error on %q: %v", name, listenErr)
	}))
	if err != nil {
		log.Printf("Controller: listen on %q failed: %v", name, err)
		in.Close()
		c.setStatus(StatusDenied, "")
		return
	}

	c.mu.Lock()
	c.inPort = in
	c.stopFn = stop
	c.status = StatusConnected
	c.deviceName = name
	c.mu.Unlock()
	log.Printf("Controller: connected to %q", name)
}

func (c *Controller) setStatus(st Status, device string) {
	c.mu.Lock()
	c.status = st
	c.deviceName = device
	c.mu.Unlock()
}

func (c *Controller) disconnect() {
	c.mu.Lock()
	stop, in := c.stopFn, c.inPort
	c.stopFn, c.inPort = nil, nil
	if c.status == StatusConnected {
		c.status = StatusRequesting
	}
	c.deviceName = ""
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if in != nil {
		in.Close()
	}
}

// handle decodes one raw message and dispatches through the current
// callback set.
func (c *Controller) handle(raw []byte) {
	if len(raw) < 3 {
		return // clock/realtime messages carry no deck semantics
	}

	ev := Decode(raw[0], raw[1], raw[2], c.mapping)

	c.mu.Lock()
	cb := c.cb
	c.mu.Unlock()

	switch e := ev.(type) {
	case CrossfaderMove:
		if cb.CrossfaderMove != nil {
			cb.CrossfaderMove(e.Value)
		}
	case TransportToggle:
		if cb.TransportToggle != nil {
			cb.TransportToggle(e.Deck)
		}
	case CueTrigger:
		if cb.CueTrigger != nil {
			cb.CueTrigger(e.Deck)
		}
	case Unmapped:
		log.Printf("Controller: unmapped event %s", e)
	}
}
