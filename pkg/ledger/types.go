package ledger

// Verb names a predicate of the ledger.
type Verb string

const (
	VerbBe          Verb = "be"
	VerbHave        Verb = "have"
	VerbDo          Verb = "do"
	VerbAt          Verb = "at"
	VerbRelate      Verb = "relate"
	VerbReact       Verb = "react"
	VerbCommunicate Verb = "communicate"

	// VerbAll matches any predicate in a GetFilter.
	VerbAll Verb = "all"
)

// WriteVerbs lists the predicates accepted by Record.
var WriteVerbs = []Verb{VerbBe, VerbHave, VerbDo, VerbAt, VerbRelate, VerbReact, VerbCommunicate}

// Known reports whether v is one of WriteVerbs.
func (v Verb) Known() bool {
	for _, w := range WriteVerbs {
		if v == w {
			return true
		}
	}
	return false
}

// Field returns the remote operation name for v. "do" is a reserved word on
// the server side and is exposed as "do_".
func (v Verb) Field() string {
	if v == VerbDo {
		return "do_"
	}
	return string(v)
}

func (v Verb) String() string { return string(v) }

// Identity is a registered actor.
type Identity struct {
	Username string `json:"username"`
}

// PublicInfo is the public metadata of an identity.
type PublicInfo struct {
	Username  string
	PublicKey string
}

// wirePublicInfo is PublicInfo as the query aliases it.
type wirePublicInfo struct {
	Username  string `json:"username"`
	PublicKey string `json:"publicKey"`
}

func (w wirePublicInfo) toPublicInfo() PublicInfo {
	return PublicInfo{Username: w.Username, PublicKey: w.PublicKey}
}

// Entry is one recorded fact. Timestamp is server-assigned and opaque.
type Entry struct {
	Verb      Verb   `json:"verb"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}
