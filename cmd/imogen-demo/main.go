// Command imogen-demo runs the harmonizer engine standalone: a synthesized
// glide acts as the modulator voice, a scripted MIDI chord drives the
// harmony, and the stereo result plays through the system audio output.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/msameen99/imogen/pkg/imogen"
	"github.com/msameen99/imogen/pkg/midi"
)

const (
	sampleRate = 44100
	blockSize  = 512
)

type scriptedEvent struct {
	atSample int
	event    midi.Event
}

// renderer feeds the processor from the audio callback and synthesizes the
// modulator signal on the fly.
type renderer struct {
	proc   *imogen.Processor
	midiQ  *midi.EventQueue
	script []scriptedEvent

	in  [2][]float32
	out [2][]float32

	phase     float64
	samplePos int
}

func newRenderer(proc *imogen.Processor) *renderer {
	r := &renderer{
		proc:  proc,
		midiQ: midi.NewEventQueue(),
	}
	for ch := 0; ch < 2; ch++ {
		r.in[ch] = make([]float32, blockSize)
		r.out[ch] = make([]float32, blockSize)
	}

	// Hold C3, G3 and C4 (an open fifth) for the whole run; the input glide supplies the
	// melody on top.
	at := sampleRate / 4
	for i, note := range []uint8{48, 55, 60} {
		r.script = append(r.script, scriptedEvent{
			atSample: at + i*sampleRate/16,
			event: midi.NoteOnEvent{
				BaseEvent:  midi.BaseEvent{EventChannel: 1},
				NoteNumber: note,
				Velocity:   96,
			},
		})
	}
	return r
}

// modulatorSample produces a sawtooth glide between A2 and A3 with a touch
// of vibrato, bright enough for the detector to lock onto.
func (r *renderer) modulatorSample() float32 {
	t := float64(r.samplePos) / sampleRate
	glide := 110.0 * math.Pow(2.0, 0.5+0.5*math.Sin(2.0*math.Pi*0.1*t))
	vibrato := 1.0 + 0.004*math.Sin(2.0*math.Pi*5.0*t)

	r.phase += glide * vibrato / sampleRate
	if r.phase >= 1.0 {
		r.phase -= 1.0
	}
	return float32(2.0*r.phase-1.0) * 0.4
}

// Read renders interleaved stereo float32 frames for the player.
func (r *renderer) Read(p []byte) (int, error) {
	frames := len(p) / 8
	done := 0

	for done < frames {
		n := blockSize
		if frames-done < n {
			n = frames - done
		}

		for i := 0; i < n; i++ {
			s := r.modulatorSample()
			r.in[0][i] = s
			r.in[1][i] = s
			r.samplePos++
		}

		r.midiQ.Clear()
		for _, se := range r.script {
			if se.atSample >= r.samplePos-n && se.atSample < r.samplePos {
				r.midiQ.Add(midi.WithOffset(se.event, int32(se.atSample-(r.samplePos-n))))
			}
		}

		in := [][]float32{r.in[0][:n], r.in[1][:n]}
		out := [][]float32{r.out[0][:n], r.out[1][:n]}
		r.proc.ProcessBlock(in, nil, out, r.midiQ)

		for i := 0; i < n; i++ {
			base := (done + i) * 8
			binary.LittleEndian.PutUint32(p[base:], math.Float32bits(r.out[0][i]))
			binary.LittleEndian.PutUint32(p[base+4:], math.Float32bits(r.out[1][i]))
		}
		done += n
	}

	return frames * 8, nil
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to play")
	voices := flag.Int("voices", 4, "harmonizer voice count")
	flag.Parse()

	proc := imogen.NewProcessor()
	if err := proc.Initialize(sampleRate, blockSize); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	if err := proc.SetNumVoices(*voices); err != nil {
		fmt.Fprintf(os.Stderr, "voices: %v\n", err)
		os.Exit(1)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio: %v\n", err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(newRenderer(proc))
	player.Play()

	fmt.Printf("playing %s of harmonized glide (%d voices, %d samples latency)\n",
		*duration, *voices, proc.LatencySamples())
	time.Sleep(*duration)

	_ = player.Close()
}
