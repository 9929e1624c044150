package score

var majorScale = [7]int{0, 2, 4, 5, 7, 9, 11}

// rows are scale degrees, columns chromatic alteration -2..+2
var syllables = [7][5]string{
	{"de", "de", "do", "di", "di"},
	{"ra", "ra", "re", "ri", "ri"},
	{"me", "me", "mi", "mi", "mi"},
	{"fe", "fe", "fa", "fi", "fi"},
	{"se", "se", "sol", "si", "si"},
	{"le", "le", "la", "li", "li"},
	{"te", "te", "ti", "ti", "ti"},
}

// Solfege names p in movable-do relative to tonic. Minor keys use do-based
// minor, so the minor third of A minor is "me".
func Solfege(tonic, p Pitch) string {
	ti, pi := stepIndex(tonic.Step), stepIndex(p.Step)
	if ti < 0 || pi < 0 {
		return ""
	}
	degree := (pi - ti + 7) % 7
	expected := (tonic.PitchClass() + majorScale[degree]) % 12
	alter := (p.PitchClass()-expected+18)%12 - 6
	if alter < -2 {
		alter = -2
	}
	if alter > 2 {
		alter = 2
	}
	return syllables[degree][alter+2]
}
