package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"sonar-ng/internal/config"
	"sonar-ng/internal/display"
	"sonar-ng/internal/echo"
	"sonar-ng/internal/gpio"
	"sonar-ng/internal/i2c"
	"sonar-ng/internal/oled"
	"sonar-ng/internal/pipe"
	"sonar-ng/internal/ranging"
	"sonar-ng/internal/sim"
	"sonar-ng/internal/trigger"
	"sonar-ng/internal/web"
)

// Hardware hooks, swapped in tests.
var (
	openOutputFn = func(chip, line string) (trigger.Pin, io.Closer, error) {
		o, err := gpio.OpenOutput(chip, line)
		if err != nil {
			return nil, nil, err
		}
		return o, o, nil
	}
	watchEdgesFn = func(chip, line string, bias gpio.Bias, h gpio.EdgeHandler) (io.Closer, error) {
		return gpio.WatchEdges(chip, line, bias, h)
	}
	openSurfaceFn = openOLED
)

// nopPin is the trigger line when the sensor is simulated.
type nopPin struct{}

func (nopPin) SetValue(int) error { return nil }

type pipelineRuntime struct {
	cfg config.Config

	pulses    *pipe.Queue[echo.PulseWidth]
	distances *pipe.Queue[ranging.Distance]
	ready     *pipe.Signal

	timer    *echo.Timer
	trigger  *trigger.Task
	ranging  *ranging.Task
	display  *display.Task
	recorder *display.Recorder
	echoSim  *sim.Echo
	status   *web.Status

	closers []io.Closer
}

func newRuntime(cfg config.Config) (*pipelineRuntime, error) {
	r := &pipelineRuntime{
		cfg:       cfg,
		pulses:    pipe.NewQueue[echo.PulseWidth](cfg.Pipeline.PulseQueue),
		distances: pipe.NewQueue[ranging.Distance](cfg.Pipeline.DistanceQueue),
		ready:     pipe.NewSignal(),
		recorder:  display.NewRecorder(),
	}

	clock := gpio.MonotonicClock{}
	r.timer = echo.NewTimer(clock, r.pulses)

	var pin trigger.Pin
	if cfg.Sim.Enable {
		target, err := simTarget(cfg.Sim)
		if err != nil {
			return nil, err
		}
		r.echoSim = sim.NewEcho(sim.EchoConfig{}, target, clock, r.timer.HandleEdgeAt)
		pin = nopPin{}
		log.Printf("sensor: simulated")
	} else {
		bias, err := gpio.ParseBias(cfg.GPIO.EchoBias)
		if err != nil {
			return nil, err
		}
		out, closer, err := openOutputFn(cfg.GPIO.Chip, cfg.GPIO.TriggerLine)
		if err != nil {
			return nil, fmt.Errorf("trigger line: %w", err)
		}
		r.closers = append(r.closers, closer)
		in, err := watchEdgesFn(cfg.GPIO.Chip, cfg.GPIO.EchoLine, bias, r.timer.HandleEdgeAt)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("echo line: %w", err)
		}
		r.closers = append(r.closers, in)
		pin = out
		log.Printf("sensor: trigger=%s echo=%s bias=%s", cfg.GPIO.TriggerLine, cfg.GPIO.EchoLine, bias)
	}

	r.trigger = trigger.NewTask(trigger.Config{Period: cfg.Trigger.Period, Pulse: cfg.Trigger.Pulse}, pin, r.ready)
	if r.echoSim != nil {
		r.trigger.OnFire = r.echoSim.Fire
	}
	r.ranging = ranging.NewTask(ranging.Config{
		RecvTimeout: cfg.Pipeline.ReceiveTimeout,
		SendTimeout: cfg.Pipeline.SendTimeout,
	}, r.pulses, r.distances, r.ready)

	surface := display.Multi{r.recorder}
	if cfg.Display.Enable {
		s, closer, err := openSurfaceFn(cfg.Display)
		if err != nil {
			// Keep ranging even without the panel; the web page mirrors it.
			log.Printf("display: %v", err)
		} else {
			surface = append(surface, s)
			r.closers = append(r.closers, closer)
		}
	}
	r.display = display.NewTask(surface, r.distances, r.ready)

	r.status = web.NewStatus(r.recorder)
	r.status.SetPipeline(map[string]any{
		"simulated":       cfg.Sim.Enable,
		"trigger_period":  cfg.Trigger.Period.String(),
		"trigger_pulse":   cfg.Trigger.Pulse.String(),
		"pulse_queue":     cfg.Pipeline.PulseQueue,
		"distance_queue":  cfg.Pipeline.DistanceQueue,
		"receive_timeout": cfg.Pipeline.ReceiveTimeout.String(),
		"send_timeout":    cfg.Pipeline.SendTimeout.String(),
		"display":         cfg.Display.Enable,
	})
	return r, nil
}

func simTarget(c config.SimConfig) (sim.Target, error) {
	if c.Scenario == "" {
		return sim.Sweep{MinCm: c.MinCm, MaxCm: c.MaxCm, Period: c.Period}, nil
	}
	script, err := sim.LoadScenarioScript(c.Scenario)
	if err != nil {
		return nil, fmt.Errorf("sim scenario: %w", err)
	}
	scn, err := sim.NewScenario(script, c.Loop)
	if err != nil {
		return nil, fmt.Errorf("sim scenario: %w", err)
	}
	return scn, nil
}

func openOLED(c config.DisplayConfig) (display.Surface, io.Closer, error) {
	bus, err := i2c.Open(c.I2CBus)
	if err != nil {
		return nil, nil, err
	}
	dev, err := oled.New(bus.Dev(uint16(c.Address)), oled.Config{Width: int16(c.Width), Height: int16(c.Height)})
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	log.Printf("display: ssd1306 %dx%d on %s addr=0x%02X", c.Width, c.Height, c.I2CBus, c.Address)
	return dev, bus, nil
}

// Run starts every task and blocks until ctx is cancelled and they return.
func (r *pipelineRuntime) Run(ctx context.Context) {
	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			log.Printf("%s task stopped", name)
		}()
	}

	if r.echoSim != nil {
		start("echo-sim", r.echoSim.Run)
	}
	start("display", r.display.Run)
	start("ranging", r.ranging.Run)
	start("trigger", r.trigger.Run)

	wg.Wait()
}

func (r *pipelineRuntime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}
	r.closers = nil
}
