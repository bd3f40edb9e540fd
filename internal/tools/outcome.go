package tools

// Sentinel strings exchanged with the model and printed to the user.
const (
	SentinelNoData  = "NO_DATA_FOUND"
	SentinelInvalid = "INVALID_QUERY"
	SentinelEmpty   = "EMPTY_RESULT"
)

// Kind tags an Outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindEmpty
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEmpty:
		return "empty"
	default:
		return "invalid"
	}
}

// Outcome is the normalized result of one tool invocation. Text is only
// meaningful for KindSuccess.
type Outcome struct {
	Kind Kind
	Text string
}

func Success(text string) Outcome { return Outcome{Kind: KindSuccess, Text: text} }
func Empty() Outcome              { return Outcome{Kind: KindEmpty} }
func Invalid() Outcome            { return Outcome{Kind: KindInvalid} }

// String renders the outcome the way the router receives it.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return o.Text
	case KindEmpty:
		return SentinelNoData
	default:
		return SentinelInvalid
	}
}
