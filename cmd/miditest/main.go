package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"go-keys/midi"
	"go-keys/note"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := &cli.Command{
		Name:  "miditest",
		Usage: "MIDI diagnostic scripts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all MIDI ports",
				Action: listPorts,
			},
			{
				Name:  "monitor",
				Usage: "Decode and print note events from every input",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "channel", Value: midi.Omni, Usage: "channel to decode, -1 for all"},
					&cli.StringFlag{Name: "serial", Usage: "also read raw MIDI from this serial device"},
					&cli.IntFlag{Name: "baud", Value: midi.DefaultBaud},
				},
				Action: monitor,
			},
			{
				Name:   "table",
				Usage:  "Print the note frequency table",
				Action: printTable,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func listPorts(ctx context.Context, _ *cli.Command) error {
	drv, err := midi.OpenDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	fmt.Println("=== MIDI Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins, outs []string
		err       error
	}
	ch := make(chan result, 1)
	go func() {
		ins, outs, err := midi.PortNames(drv)
		ch <- result{ins, outs, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		fmt.Println("\nInputs:")
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p)
		}
		fmt.Println("\nOutputs:")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	case <-ctx.Done():
	}
	return nil
}

func monitor(ctx context.Context, c *cli.Command) error {
	dec := midi.Decoder{Channel: int(c.Int("channel")), VelocityZeroOff: true}
	start := time.Now()
	handle := func(msg []byte) {
		ev, err := dec.Decode(msg)
		stamp := time.Since(start).Seconds()
		switch {
		case err != nil:
			fmt.Printf("%8.3f  % X  error: %v\n", stamp, msg, err)
		case ev.Kind == midi.Ignored:
			fmt.Printf("%8.3f  % X  ignored\n", stamp, msg)
		default:
			fmt.Printf("%8.3f  % X  %s\n", stamp, msg, ev)
		}
	}

	if port := c.String("serial"); port != "" {
		in, err := midi.OpenSerial(port, int(c.Int("baud")), handle)
		if err != nil {
			return err
		}
		go func() {
			if err := in.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "serial: %v\n", err)
			}
		}()
	}

	drv, err := midi.OpenDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	dm := midi.NewDeviceManager(drv, handle, midi.ManagerOptions{})
	go dm.Run(ctx)

	fmt.Println("Monitoring MIDI input (Ctrl+C to quit)...")
	for ev := range dm.Events() {
		switch ev.Type {
		case midi.DeviceConnected:
			fmt.Printf("+ %s (%s)\n", ev.ID, ev.Controller.Type())
		case midi.DeviceDisconnected:
			fmt.Printf("- %s\n", ev.ID)
		}
	}
	return nil
}

func printTable(_ context.Context, _ *cli.Command) error {
	table := note.NewFrequencyTable()

	var header strings.Builder
	header.WriteString("oct ")
	for p := note.C; p <= note.B; p++ {
		fmt.Fprintf(&header, "%9s", p)
	}
	fmt.Println(header.String())

	for oct := note.MinOctave; oct <= note.MaxOctave; oct++ {
		var line strings.Builder
		fmt.Fprintf(&line, "%3d ", oct)
		for p := note.C; p <= note.B; p++ {
			hz, err := table.Frequency(note.ID{Pitch: p, Octave: oct})
			if err != nil {
				line.WriteString("        -")
				continue
			}
			fmt.Fprintf(&line, "%9.2f", hz)
		}
		fmt.Println(line.String())
	}
	return nil
}
