// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package simulator provides in-memory platform TV and DTV-kit services
// speaking the tvserver protocol, for tvserver-sim and for tests.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/events"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/tvserver"
)

// Platform is a configurable simulated platform TV service.
type Platform struct {
	server *tvserver.Server

	mu           sync.RWMutex
	devices      string
	current      int32
	tunnelID     int32
	running      bool
	cable        map[int32]bool
	hotplug      bool
	pipSupported bool
	pipSource    int32
	misc         map[string]string
	edidVersion  map[int32]int32
	colorRange   int32
	screenColor  int32
	signal       tvserver.SignalInfo
	format       tvserver.FormatInfo
	failures     map[string]status.Code
	calls        []string
}

// NewPlatform creates a platform with default data and every operation
// registered on its server.
func NewPlatform(logger zerolog.Logger) *Platform {
	p := &Platform{server: tvserver.NewServer(logger)}
	p.SetDefaultData()

	handlers := map[string]tvserver.HandlerFunc{
		tvserver.OpStartTv:                       p.handleStartTv,
		tvserver.OpStopTv:                        p.handleStopTv,
		tvserver.OpSetTunnelID:                   p.handleSetTunnelID,
		tvserver.OpSwitchInputSrc:                p.handleSwitchInputSrc,
		tvserver.OpGetInputSrcConnectStatus:      p.handleConnectStatus,
		tvserver.OpGetCurrentInputSrc:            p.handleCurrentInputSrc,
		tvserver.OpGetHdmiAvHotplugStatus:        p.handleHotplugStatus,
		tvserver.OpGetSupportInputDevices:        p.handleSupportInputDevices,
		tvserver.OpGetHdmiPorts:                  p.handleHdmiPorts,
		tvserver.OpGetCurSignalInfo:              p.handleSignalInfo,
		tvserver.OpSetMiscCfg:                    p.handleSetMiscCfg,
		tvserver.OpGetMiscCfg:                    p.handleGetMiscCfg,
		tvserver.OpLoadEdidData:                  p.ok,
		tvserver.OpUpdateEdidData:                p.ok,
		tvserver.OpSetHdmiEdidVersion:            p.handleSetEdidVersion,
		tvserver.OpGetHdmiEdidVersion:            p.handleGetEdidVersion,
		tvserver.OpSaveHdmiEdidVersion:           p.handleSetEdidVersion,
		tvserver.OpSetHdmiColorRangeMode:         p.handleSetColorRange,
		tvserver.OpGetHdmiColorRangeMode:         p.handleGetColorRange,
		tvserver.OpGetHdmiFormatInfo:             p.handleFormatInfo,
		tvserver.OpHandleGPIO:                    p.ok,
		tvserver.OpVdinUpdateForPQ:               p.ok,
		tvserver.OpSetWssStatus:                  p.ok,
		tvserver.OpSetDeviceIDForCec:             p.ok,
		tvserver.OpSetScreenColorForSignalChange: p.handleSetScreenColor,
		tvserver.OpGetScreenColorForSignalChange: p.handleGetScreenColor,
		tvserver.OpDtvGetSignalSNR:               p.handleSNR,
		tvserver.OpGetBasicVdecStatusInfo:        p.handleVdecStatus,
		tvserver.OpStartTvInPIP:                  p.handleStartPIP,
		tvserver.OpStopTvInPIP:                   p.handleStopPIP,
		tvserver.OpIsSupportPIP:                  p.handleIsSupportPIP,
	}
	for op, h := range handlers {
		p.server.Handle(op, p.recorded(op, h))
	}
	return p
}

// Server returns the protocol server to publish.
func (p *Platform) Server() *tvserver.Server { return p.server }

// SetDefaultData restores a tuner, two HDMI ports, AV1 and DTV-kit with
// HDMI1 cabled.
func (p *Platform) SetDefaultData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = source.FormatDeviceList([]source.ID{source.TV, source.AV1, source.HDMI1, source.HDMI2, source.DTVKit})
	p.current = int32(source.TV)
	p.tunnelID = -1
	p.running = false
	p.cable = map[int32]bool{int32(source.HDMI1): true}
	p.hotplug = true
	p.pipSupported = false
	p.pipSource = int32(source.Invalid)
	p.misc = make(map[string]string)
	p.edidVersion = make(map[int32]int32)
	p.colorRange = 0
	p.screenColor = 0
	p.signal = tvserver.SignalInfo{Fmt: 0x401, TransFmt: 0, Status: 0, FrameRate: 60}
	p.format = tvserver.FormatInfo{Width: 1920, Height: 1080, FPS: 60, Interlace: 0}
	p.failures = make(map[string]status.Code)
	p.calls = nil
}

// SetDevices sets the raw comma-separated device list, e.g. "0,5,19" or "null".
func (p *Platform) SetDevices(raw string) {
	p.mu.Lock()
	p.devices = raw
	p.mu.Unlock()
}

// SetCurrent overrides the input the platform reports as current.
func (p *Platform) SetCurrent(src source.ID) {
	p.mu.Lock()
	p.current = int32(src)
	p.mu.Unlock()
}

// SetPIPSupported sets the PIP capability flag.
func (p *Platform) SetPIPSupported(v bool) {
	p.mu.Lock()
	p.pipSupported = v
	p.mu.Unlock()
}

// FailNext makes the next call of op return code.
func (p *Platform) FailNext(op string, code status.Code) {
	p.mu.Lock()
	p.failures[op] = code
	p.mu.Unlock()
}

// Current returns the current input.
func (p *Platform) Current() source.ID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return source.ID(p.current)
}

// TunnelID returns the tunnel id last set.
func (p *Platform) TunnelID() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tunnelID
}

// Running reports whether the TV pipeline is started.
func (p *Platform) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Calls returns the operations served so far, in order.
func (p *Platform) Calls() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.calls...)
}

// Hotplug changes the cable state of src and notifies subscribers. It
// returns the number of subscribers notified.
func (p *Platform) Hotplug(src source.ID, connected bool) int {
	p.mu.Lock()
	p.cable[int32(src)] = connected
	p.mu.Unlock()

	state := int32(0)
	if connected {
		state = 1
	}
	return p.server.Broadcast(tvserver.Event{
		MsgType: events.MsgSourceConnect,
		Ints:    []int32{int32(src), state},
	})
}

func (p *Platform) recorded(op string, h tvserver.HandlerFunc) tvserver.HandlerFunc {
	return func(ctx context.Context, args tvserver.Args) (tvserver.Reply, error) {
		p.mu.Lock()
		p.calls = append(p.calls, op)
		code, fail := p.failures[op]
		delete(p.failures, op)
		p.mu.Unlock()
		if fail {
			return tvserver.Reply{Result: code}, nil
		}
		return h(ctx, args)
	}
}

func (p *Platform) ok(context.Context, tvserver.Args) (tvserver.Reply, error) {
	return tvserver.Reply{Result: status.OK}, nil
}

func intArg(args tvserver.Args, i int) (int32, error) {
	if len(args.Ints) <= i {
		return 0, fmt.Errorf("missing int argument %d", i)
	}
	return args.Ints[i], nil
}

func (p *Platform) handleStartTv(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return tvserver.Reply{Result: status.Busy}, nil
	}
	p.running = true
	return tvserver.Reply{}, nil
}

func (p *Platform) handleStopTv(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleSetTunnelID(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	id, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.Lock()
	p.tunnelID = id
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleSwitchInputSrc(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	src, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasDeviceLocked(src) {
		return tvserver.Reply{Result: status.NoDevice}, nil
	}
	p.current = src
	return tvserver.Reply{}, nil
}

func (p *Platform) hasDeviceLocked(src int32) bool {
	ids, _, err := source.ParseDeviceList(p.devices)
	if err != nil {
		return false
	}
	for _, id := range ids {
		if int32(id) == src {
			return true
		}
	}
	return false
}

func (p *Platform) handleConnectStatus(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	src, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cable[src] {
		return tvserver.Reply{Result: 1}, nil
	}
	return tvserver.Reply{Result: 0}, nil
}

func (p *Platform) handleCurrentInputSrc(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Result: status.Code(p.current)}, nil
}

func (p *Platform) handleHotplugStatus(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.hotplug {
		return tvserver.Reply{Result: 1}, nil
	}
	return tvserver.Reply{Result: 0}, nil
}

func (p *Platform) handleSupportInputDevices(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Strings: []string{p.devices}}, nil
}

func (p *Platform) handleHdmiPorts(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	src, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	id := source.ID(src)
	if !id.IsHDMI() {
		return tvserver.Reply{Result: 0}, nil
	}
	return tvserver.Reply{Result: status.Code(id-source.HDMI1) + 1}, nil
}

func (p *Platform) handleSignalInfo(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Ints: p.signal.Ints()}, nil
}

func (p *Platform) handleSetMiscCfg(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	if len(args.Strings) < 2 {
		return tvserver.Reply{Result: status.InvalidArg}, fmt.Errorf("setMiscCfg needs key and value")
	}
	p.mu.Lock()
	p.misc[args.Strings[0]] = args.Strings[1]
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleGetMiscCfg(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	if len(args.Strings) < 2 {
		return tvserver.Reply{Result: status.InvalidArg}, fmt.Errorf("getMiscCfg needs key and default")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.misc[args.Strings[0]]; ok {
		return tvserver.Reply{Strings: []string{v}}, nil
	}
	return tvserver.Reply{Strings: []string{args.Strings[1]}}, nil
}

func (p *Platform) handleSetEdidVersion(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	if len(args.Ints) < 2 {
		return tvserver.Reply{Result: status.InvalidArg}, fmt.Errorf("edid version needs port and version")
	}
	p.mu.Lock()
	p.edidVersion[args.Ints[0]] = args.Ints[1]
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleGetEdidVersion(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	port, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Result: status.Code(p.edidVersion[port])}, nil
}

func (p *Platform) handleSetColorRange(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	mode, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.Lock()
	p.colorRange = mode
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleGetColorRange(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Result: status.Code(p.colorRange)}, nil
}

func (p *Platform) handleFormatInfo(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Ints: p.format.Ints()}, nil
}

func (p *Platform) handleSetScreenColor(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	color, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.Lock()
	p.screenColor = color
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleGetScreenColor(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tvserver.Reply{Result: status.Code(p.screenColor)}, nil
}

func (p *Platform) handleSNR(context.Context, tvserver.Args) (tvserver.Reply, error) {
	return tvserver.Reply{Result: 32}, nil
}

func (p *Platform) handleVdecStatus(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := tvserver.VdecState{
		FrameWidth:  p.format.Width,
		FrameHeight: p.format.Height,
		FrameRate:   p.format.FPS,
	}
	return tvserver.Reply{Ints: st.Ints()}, nil
}

func (p *Platform) handleStartPIP(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	src, err := intArg(args, 0)
	if err != nil {
		return tvserver.Reply{Result: status.InvalidArg}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pipSupported {
		return tvserver.Reply{Result: status.NotImplemented}, nil
	}
	p.pipSource = src
	return tvserver.Reply{}, nil
}

func (p *Platform) handleStopPIP(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.Lock()
	p.pipSource = int32(source.Invalid)
	p.mu.Unlock()
	return tvserver.Reply{}, nil
}

func (p *Platform) handleIsSupportPIP(context.Context, tvserver.Args) (tvserver.Reply, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pipSupported {
		return tvserver.Reply{Result: 1}, nil
	}
	return tvserver.Reply{Result: 0}, nil
}

// DTVKit is a simulated DTV-kit session service.
type DTVKit struct {
	server *tvserver.Server

	mu      sync.Mutex
	methods []string
	holding bool
}

// NewDTVKit creates a DTV-kit service that answers every request method.
func NewDTVKit(logger zerolog.Logger) *DTVKit {
	d := &DTVKit{server: tvserver.NewServer(logger)}
	d.server.Handle(tvserver.OpRequest, d.handleRequest)
	return d
}

// Server returns the protocol server to publish.
func (d *DTVKit) Server() *tvserver.Server { return d.server }

// Methods returns the request methods received so far, in order.
func (d *DTVKit) Methods() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.methods...)
}

// Holding reports whether the DTV device is currently requested.
func (d *DTVKit) Holding() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.holding
}

func (d *DTVKit) handleRequest(_ context.Context, args tvserver.Args) (tvserver.Reply, error) {
	if len(args.Strings) < 1 {
		return tvserver.Reply{Result: status.InvalidArg}, fmt.Errorf("request needs a method")
	}
	method := args.Strings[0]

	d.mu.Lock()
	d.methods = append(d.methods, method)
	switch method {
	case tvserver.DTVKitRequestDevice:
		d.holding = true
	case tvserver.DTVKitReleaseDevice:
		d.holding = false
	}
	holding := d.holding
	d.mu.Unlock()

	resp, err := json.Marshal(map[string]string{
		"method":  method,
		"holding": strconv.FormatBool(holding),
	})
	if err != nil {
		return tvserver.Reply{Result: status.IOError}, err
	}
	return tvserver.Reply{Strings: []string{string(resp)}}, nil
}
