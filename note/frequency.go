package note

import "fmt"

// Octave 1 is the reference; octave 0 is halved from it and octaves 2-8 are
// doubled, so every octave is an exact power-of-two multiple.
var (
	// octave 0 only reaches down to A0
	octave0Defined = [NumPitchClasses]bool{A: true, ASharp: true, B: true}

	octave1Seed = [NumPitchClasses]float64{
		32.703195662574829, // C
		34.647828872109012, // C#
		36.708095989675945, // D
		38.890872965260113, // D#
		41.203444614108741, // E
		43.653528929125485, // F
		46.249302838954299, // F#
		48.999429497718661, // G
		51.913087197493142, // G#
		55.000000000000000, // A
		58.270470189761239, // A#
		61.735412657015513, // B
	}
)

// FrequencyTable maps (octave, pitch class) to Hz. The zero value is empty;
// build one with NewFrequencyTable.
type FrequencyTable struct {
	freq  [NumOctaves][NumPitchClasses]float64
	valid [NumOctaves][NumPitchClasses]bool
}

// NewFrequencyTable seeds octave 1, halves it into octave 0 (A0 and up) and
// doubles upward through octave 8
func NewFrequencyTable() FrequencyTable {
	var t FrequencyTable

	for p, hz := range octave1Seed {
		t.freq[1][p] = hz
		t.valid[1][p] = true
		if octave0Defined[p] {
			t.freq[0][p] = hz / 2
			t.valid[0][p] = true
		}
	}
	for o := 2; o < NumOctaves; o++ {
		for p := 0; p < NumPitchClasses; p++ {
			t.freq[o][p] = t.freq[o-1][p] * 2
			t.valid[o][p] = true
		}
	}
	return t
}

// Frequency returns the frequency of id in Hz
func (t FrequencyTable) Frequency(id ID) (float64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("frequency of %s: %w", id, ErrOutOfRange)
	}
	if !t.valid[id.Octave][id.Pitch] {
		return 0, fmt.Errorf("frequency of %s: no reference below A0: %w", id, ErrOutOfRange)
	}
	return t.freq[id.Octave][id.Pitch], nil
}

// Defined reports whether the table has a frequency for id
func (t FrequencyTable) Defined(id ID) bool {
	return id.Valid() && t.valid[id.Octave][id.Pitch]
}
