package score

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"
)

type reducedEvent struct {
	tick      int64
	isNoteOff bool
	note      uint8
}

type sounding struct {
	start, end int64
	note       uint8
}

type lyricMark struct {
	tick int64
	text string
}

// ReadMidiFile parses a Standard MIDI File. Every track carrying notes
// becomes one part; key and time signatures apply to all parts.
func ReadMidiFile(filepath string) (s *Score, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s, e = nil, fmt.Errorf("%w: midi reader panicked: %v", ErrUnparsable, r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	res, err := convertMidi(parsed)
	if err != nil {
		return nil, err
	}
	res.Path = filepath
	return res, nil
}

func convertMidi(parsed *smf.SMF) (*Score, error) {
	ticks, ok := parsed.TimeFormat.(smf.MetricTicks)
	if !ok || ticks == 0 {
		return nil, fmt.Errorf("%w: only metric tick time formats are supported", ErrUnparsable)
	}
	perQuarter := float64(ticks)

	var keys []KeySignature
	var times []TimeSignature
	type trackData struct {
		name   string
		events []reducedEvent
		lyrics []lyricMark
	}
	var tracks []trackData

	for _, events := range parsed.Tracks {
		var td trackData
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			msg := event.Message

			var channel, key, velocity uint8
			var text string
			var num, denom, clocks, demisemi uint8
			var tonic, accidentals uint8
			var isMajor, isFlat bool
			switch {
			case msg.GetNoteOn(&channel, &key, &velocity):
				td.events = append(td.events, reducedEvent{tick: absTicks, isNoteOff: velocity == 0, note: key})
			case msg.GetNoteOff(&channel, &key, &velocity):
				td.events = append(td.events, reducedEvent{tick: absTicks, isNoteOff: true, note: key})
			case msg.GetMetaTimeSig(&num, &denom, &clocks, &demisemi):
				times = append(times, TimeSignature{Beats: int(num), BeatType: int(denom)})
			case msg.GetMetaKeySig(&tonic, &accidentals, &isMajor, &isFlat):
				fifths := int(accidentals)
				if isFlat {
					fifths = -fifths
				}
				mode := "major"
				if !isMajor {
					mode = "minor"
				}
				keys = append(keys, KeySignature{Fifths: fifths, Mode: mode})
			case msg.GetMetaLyric(&text):
				td.lyrics = append(td.lyrics, lyricMark{tick: absTicks, text: text})
			case msg.GetMetaTrackName(&text):
				td.name = strings.TrimSpace(text)
			}
		}
		tracks = append(tracks, td)
	}

	measureTicks := 4 * perQuarter
	if len(times) > 0 && times[0].QuarterLength() > 0 {
		measureTicks = times[0].QuarterLength() * perQuarter
	}
	preferFlats := len(keys) > 0 && keys[0].Fifths < 0

	res := &Score{Format: FormatMIDI}
	for i, td := range tracks {
		notes := pairNotes(td.events)
		if len(notes) == 0 {
			continue
		}
		part := Part{
			ID:    fmt.Sprintf("P%d", i+1),
			Name:  td.name,
			Keys:  append([]KeySignature(nil), keys...),
			Times: append([]TimeSignature(nil), times...),
		}
		part.Events = midiEvents(notes, perQuarter, measureTicks, preferFlats)
		attachLyrics(part.Events, notes, td.lyrics)
		part.Measures = midiMeasures(notes, measureTicks, perQuarter)
		res.Parts = append(res.Parts, part)
	}
	return res, nil
}

// pairNotes matches note-ons with note-offs. Events are ordered by tick with
// note-offs first so repeated notes on the same key close before reopening.
func pairNotes(events []reducedEvent) []sounding {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].isNoteOff && !events[j].isNoteOff
	})

	var res []sounding
	pressed := make(map[uint8]int64)
	for _, evt := range events {
		start, isPressed := pressed[evt.note]
		if evt.isNoteOff {
			if isPressed {
				res = append(res, sounding{start: start, end: evt.tick, note: evt.note})
				delete(pressed, evt.note)
			}
			continue
		}
		if isPressed {
			res = append(res, sounding{start: start, end: evt.tick, note: evt.note})
		}
		pressed[evt.note] = evt.tick
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].start != res[j].start {
			return res[i].start < res[j].start
		}
		return res[i].note < res[j].note
	})
	return res
}

func midiEvents(notes []sounding, perQuarter, measureTicks float64, preferFlats bool) []Event {
	var res []Event
	var cursor int64
	for i, n := range notes {
		chord := i > 0 && notes[i-1].start == n.start
		if !chord && n.start > cursor {
			res = append(res, Event{
				Kind:     KindRest,
				Duration: quantize(float64(n.start-cursor) / perQuarter),
				Measure:  int(float64(cursor) / measureTicks),
			})
		}
		res = append(res, Event{
			Kind:     KindNote,
			Pitch:    PitchFromMIDI(int(n.note), preferFlats),
			Duration: quantize(float64(n.end-n.start) / perQuarter),
			Chord:    chord,
			Measure:  int(float64(n.start) / measureTicks),
		})
		if n.end > cursor {
			cursor = n.end
		}
	}
	return res
}

// attachLyrics gives each lyric to the first non-chord note starting at or
// after it.
func attachLyrics(events []Event, notes []sounding, lyrics []lyricMark) {
	if len(lyrics) == 0 {
		return
	}
	var noteIdx []int
	var starts []int64
	n := 0
	for i, e := range events {
		if e.Kind != KindNote {
			continue
		}
		if !e.Chord {
			noteIdx = append(noteIdx, i)
			starts = append(starts, notes[n].start)
		}
		n++
	}
	for _, l := range lyrics {
		text := strings.TrimSpace(l.text)
		if text == "" {
			continue
		}
		pos := sort.Search(len(starts), func(i int) bool { return starts[i] >= l.tick })
		if pos == len(starts) {
			continue
		}
		syllabic := "single"
		if strings.HasSuffix(text, "-") {
			syllabic = "begin"
			text = strings.TrimSuffix(text, "-")
		}
		ev := &events[noteIdx[pos]]
		ev.Lyrics = append(ev.Lyrics, Lyric{Verse: 1, Syllabic: syllabic, Text: text})
	}
}

func midiMeasures(notes []sounding, measureTicks, perQuarter float64) []Measure {
	var last int64
	for _, n := range notes {
		if n.end > last {
			last = n.end
		}
	}
	count := int(math.Ceil(float64(last) / measureTicks))
	expected := measureTicks / perQuarter
	res := make([]Measure, 0, count)
	for i := 0; i < count; i++ {
		length := expected
		if i == count-1 {
			length = quantize((float64(last) - float64(i)*measureTicks) / perQuarter)
		}
		res = append(res, Measure{Number: fmt.Sprint(i + 1), Length: length, Expected: expected})
	}
	return res
}

// quantize rounds to the nearest 128th of a quarter to absorb humanized timing.
func quantize(q float64) float64 {
	return math.Round(q*128) / 128
}
