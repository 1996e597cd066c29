// Command reverbprobe drives the reverb engine with a synthetic impulse
// and reports decay diagnostics. It exists to exercise the library
// end-to-end the way a host would; it is not part of the engine's
// public interface.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/fenwick-audio/reverb3d/pkg/debug"
	"github.com/fenwick-audio/reverb3d/pkg/dsp"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/reverb"
	"github.com/fenwick-audio/reverb3d/pkg/dsp/utility"
)

func main() {
	sampleRate := pflag.Float64P("sample-rate", "r", 48000, "sample rate in Hz")
	preset := pflag.StringP("preset", "p", "generic", "named preset to load")
	seconds := pflag.Float64P("seconds", "s", 2.0, "length of tail to render, in seconds")
	verbose := pflag.BoolP("verbose", "v", false, "enable diagnostic logging")
	profile := pflag.Bool("profile", false, "time the render loop and print a performance report")
	list := pflag.Bool("list-presets", false, "print every embedded preset name and exit")
	noiseBurst := pflag.Duration("noise-burst", 0, "drive the engine with pink noise for this long instead of a single impulse")
	pflag.Parse()

	if *list {
		for _, name := range reverb.PresetNames() {
			fmt.Println(name)
		}
		return
	}

	params, ok := reverb.Preset(*preset)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown preset %q; pass --list-presets to see the available names\n", *preset)
		os.Exit(1)
	}

	state := reverb.Create()
	if *verbose {
		state.SetLogger(debug.New(os.Stderr, "reverbprobe", debug.FlagLevel|debug.FlagPrefix))
	}
	if err := state.DeviceUpdate(*sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "device update failed: %v\n", err)
		os.Exit(1)
	}
	state.Update(params)

	const blockSize = 256
	totalSamples := int(*sampleRate * *seconds)

	in := make([][]float32, reverb.NumLines)
	out := make([][]float32, reverb.NumLines)
	for c := range in {
		in[c] = make([]float32, blockSize)
		out[c] = make([]float32, blockSize)
	}
	noiseBurstSamples := int(*sampleRate * noiseBurst.Seconds())
	var noise *utility.NoiseGenerator
	if noiseBurstSamples > 0 {
		noise = utility.NewNoiseGenerator(utility.PinkNoise)
	} else {
		in[0][0] = 1.0 // unit impulse on the W channel
	}

	var profiler *debug.AudioProcessProfiler
	if *profile {
		profiler = debug.NewAudioProcessProfiler(*sampleRate, blockSize)
	}

	mono := make([]float32, blockSize)
	var peak float32
	var sumSquares float64
	var firstBelow60dB = -1

	processed := 0
	for processed < totalSamples {
		n := blockSize
		if totalSamples-processed < n {
			n = totalSamples - processed
		}
		if noise != nil {
			burstLen := n
			if noiseBurstSamples-processed < burstLen {
				burstLen = noiseBurstSamples - processed
			}
			if burstLen > 0 {
				noise.Generate(in[0][:burstLen])
			}
			for i := burstLen; i < n; i++ {
				in[0][i] = 0
			}
		}

		var inArr, outArr [reverb.NumLines][]float32
		for c := 0; c < reverb.NumLines; c++ {
			inArr[c] = in[c][:n]
			outArr[c] = out[c][:n]
		}
		if profiler != nil {
			profiler.Time("ProcessAudio", func() { state.Process(inArr, outArr) })
		} else {
			state.Process(inArr, outArr)
		}

		block := mono[:n]
		dsp.Clear(block)
		for c := 0; c < reverb.NumLines; c++ {
			dsp.Add(block, out[c][:n])
		}
		if blockPeak := dsp.Peak(block); blockPeak > peak {
			peak = blockPeak
		}
		blockRMS := dsp.RMS(block)
		sumSquares += float64(blockRMS) * float64(blockRMS) * float64(n)

		for i, sample := range block {
			abs := float32(math.Abs(float64(sample)))
			if peak > 0 && firstBelow60dB < 0 && abs < peak*0.001 && processed+i > 0 {
				firstBelow60dB = processed + i
			}
		}

		in[0][0] = 0 // impulse only on the very first sample
		processed += n
	}

	rate := *sampleRate
	rms := float32(math.Sqrt(sumSquares / float64(totalSamples)))
	fmt.Printf("preset=%s sample_rate=%.0f samples=%d peak=%.6f rms=%.6f\n", *preset, rate, totalSamples, peak, rms)
	if firstBelow60dB >= 0 {
		fmt.Printf("-60dB reached at sample %d (%.3fs)\n", firstBelow60dB, float64(firstBelow60dB)/rate)
	} else {
		fmt.Println("-60dB point not reached within rendered window")
	}

	if *verbose {
		for c := 0; c < reverb.NumLines; c++ {
			debug.LogBufferStats(out[c], fmt.Sprintf("channel[%d]", c))
		}
	}
	if profiler != nil {
		profiler.UpdateCPULoad()
		fmt.Print(profiler.AudioReport())
	}
}
