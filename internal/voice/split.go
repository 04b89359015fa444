package voice

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// directive matches a {json} block and the text up to the next one.
var directive = regexp.MustCompile(`(\{[^}]*\})([^{]*)`)

// Utterance is one piece of speech in a single voice.
type Utterance struct {
	Text  string
	Voice string
	Pause time.Duration
}

// Split breaks text into utterances at {json} directives. A directive may
// set "voice" (a stored voice id) and "pause" (seconds of silence before
// the segment). Text before the first directive uses defaultVoice, as does
// any directive that does not name one. Segments that are only whitespace
// are dropped.
func Split(text, defaultVoice string) []Utterance {
	matches := directive.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Utterance{{Text: text, Voice: defaultVoice}}
	}

	var out []Utterance
	if first := matches[0][0]; first > 0 && strings.TrimSpace(text[:first]) != "" {
		out = append(out, Utterance{Text: text[:first], Voice: defaultVoice})
	}
	for _, m := range matches {
		segment := text[m[4]:m[5]]
		if strings.TrimSpace(segment) == "" {
			continue
		}
		u := params(text[m[2]:m[3]], defaultVoice)
		u.Text = segment
		out = append(out, u)
	}
	return out
}

func params(raw, defaultVoice string) Utterance {
	u := Utterance{Voice: defaultVoice}
	var p struct {
		Voice string  `json:"voice"`
		Pause float64 `json:"pause"`
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return u
	}
	if p.Voice != "" {
		u.Voice = p.Voice
	}
	if p.Pause > 0 {
		u.Pause = time.Duration(p.Pause * float64(time.Second))
	}
	return u
}
