// Package event parses ACCOUNT_ID, NEW_EVENT, and ASCII block payloads into
// a structured Event and provides the static SIA event-code description
// table.
package event

import (
	"regexp"
	"strings"

	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/charmap"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/frame"
)

// Event holds everything parsed out of one event chunk. Only Account is
// guaranteed to be set; every other field is optional depending on which
// blocks the panel sent.
type Event struct {
	Account string
	SiteName string

	Time        string
	UserID      string
	Partition   string
	Group       string
	Value       string
	EventCode   string
	Description string
	Zone        string

	ActionText string

	// Raw payloads, kept for diagnostics only.
	AccountPayload []byte
	DataPayload    []byte
	ASCIIPayload   []byte
}

// eventCodeLastSection matches the event code (and optional zone) that
// always terminates a NEW_EVENT payload's last '/'-delimited section.
var eventCodeLastSection = regexp.MustCompile(`^([A-Z]{2})(\d{3,4})?`)

// Descriptions maps SIA event codes to human-readable text. Codes absent
// from this table resolve to "Unknown" rather than failing the parse.
var Descriptions = map[string]string{
	"BA": "Burglary Alarm",
	"FA": "Fire Alarm",
	"PA": "Panic Alarm",
	"TA": "Tamper Alarm",
	"BR": "Burglary Restore",
	"FR": "Fire Restore",
	"PR": "Panic Restore",
	"TR": "Tamper Restore",
	"YS": "Supervisory",
	"YR": "Supervisory Restore",
	"CL": "Closing Report (User Armed)",
	"OP": "Opening Report (User Disarmed)",
	"AT": "AC Power Failure",
	"AR": "AC Power Restored",
	"LB": "Low Battery",
	"LX": "Low Battery Restore",
	"RP": "Automatic Test",
	"JT": "Test Pulse",
}

// Describe looks up the human-readable meaning of an event code, returning
// "Unknown" for codes not in Descriptions.
func Describe(code string) string {
	if d, ok := Descriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// Logger is the minimal structured-logging surface Parse needs, satisfied
// by *slog.Logger and by internal/logger's package-level helpers through a
// small adapter in the caller.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// ParseAccountID fills Account from an ACCOUNT_ID payload: the entire
// payload, taken as ASCII digits with no delimiters.
func (e *Event) ParseAccountID(payload []byte) {
	e.AccountPayload = payload
	e.Account = string(payload)
}

// ParseNewEvent fills time/user/partition/group/value/event-code/zone from
// a NEW_EVENT payload's '/'-delimited sections. Every section but the last
// carries a two-letter prefix; the last section is the event code and
// optional zone. Unrecognized prefixes are logged at debug and otherwise
// ignored; a last section that doesn't match the event-code pattern logs a
// warning and leaves EventCode unset.
func (e *Event) ParseNewEvent(payload []byte, log Logger) {
	if log == nil {
		log = noopLogger{}
	}
	e.DataPayload = payload
	sections := strings.Split(string(payload), "/")
	if len(sections) == 0 {
		return
	}

	for _, section := range sections[:len(sections)-1] {
		switch {
		case strings.HasPrefix(section, "ti"):
			e.Time = section[2:]
		case strings.HasPrefix(section, "id"):
			e.UserID = section[2:]
		case strings.HasPrefix(section, "pi"):
			e.Partition = section[2:]
		case strings.HasPrefix(section, "ri"):
			e.Group = section[2:]
		case strings.HasPrefix(section, "va"):
			e.Value = section[2:]
		default:
			log.Debug("unknown NEW_EVENT section identifier", "section", section)
		}
	}

	last := sections[len(sections)-1]
	m := eventCodeLastSection.FindStringSubmatch(last)
	if m == nil {
		log.Warn("could not parse event code from last section", "section", last)
		return
	}
	e.EventCode = m[1]
	e.Description = Describe(e.EventCode)
	if m[2] != "" {
		e.Zone = m[2]
	}
}

// ParseASCII fills ActionText from an ASCII block payload, applying the
// panel's proprietary byte-to-Unicode transliteration via m.
func (e *Event) ParseASCII(payload []byte, m charmap.Map) {
	e.ASCIIPayload = payload
	e.ActionText = m.Decode(payload)
}

// ParseChunk parses a single event chunk (as produced by the assembler)
// into an Event. siteName resolves an account to a human-readable site
// name, falling back to the account number itself. Unknown commands
// (including END_OF_DATA, which the assembler never includes) are logged
// and otherwise ignored.
func ParseChunk(blocks []frame.Block, siteName func(account string) string, charMap charmap.Map, log Logger) Event {
	if log == nil {
		log = noopLogger{}
	}
	var e Event
	for _, b := range blocks {
		switch b.Command {
		case frame.CommandAccountID:
			e.ParseAccountID(b.Payload)
			if e.Account != "" && siteName != nil {
				e.SiteName = siteName(e.Account)
			}
		case frame.CommandNewEvent:
			e.ParseNewEvent(b.Payload, log)
		case frame.CommandASCII:
			e.ParseASCII(b.Payload, charMap)
		default:
			log.Warn("unknown command in event chunk", "command", b.Command.String())
		}
	}
	return e
}
