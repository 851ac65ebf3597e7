package draft

import "errors"

// ErrWidgetNotReady means the address lookup widget's client library has
// not loaded yet. The user retries the lookup; nothing retries on its own.
var ErrWidgetNotReady = errors.New("address lookup is still loading, try again shortly")

// Postcode widget script, injected once per page under a fixed element id.
const (
	PostcodeScriptID  = "daum-postcode-script"
	PostcodeScriptSrc = "//t1.daumcdn.net/mapjsapi/bundle/postcode/prod/postcode.v2.js"
)

// AddressResult is the completion payload of the address lookup widget.
type AddressResult struct {
	RoadAddress  string `json:"roadAddress" form:"roadAddress"`
	JibunAddress string `json:"jibunAddress" form:"jibunAddress"`
}

// Base returns the road address, falling back to the lot-number address.
func (r AddressResult) Base() string {
	if r.RoadAddress != "" {
		return r.RoadAddress
	}
	return r.JibunAddress
}

// AddressLookup is the external widget seen as a capability. Only its
// completion payload is inspected, never its internals.
type AddressLookup interface {
	Loaded() bool
	Open(onComplete func(AddressResult))
}

// ResolveAddress opens the lookup and writes the chosen base address into
// the draft when the widget completes.
func (b *Builder) ResolveAddress(lookup AddressLookup) error {
	if lookup == nil || !lookup.Loaded() {
		return ErrWidgetNotReady
	}
	lookup.Open(func(r AddressResult) {
		b.draft.Address = r.Base()
	})
	return nil
}

// CompletedLookup is an AddressLookup whose widget already ran in the
// browser and posted its result back. A nil result means the widget never
// loaded on the page.
type CompletedLookup struct {
	Result *AddressResult
}

func (l CompletedLookup) Loaded() bool { return l.Result != nil }

func (l CompletedLookup) Open(onComplete func(AddressResult)) {
	if l.Result != nil {
		onComplete(*l.Result)
	}
}

// Script is one external script tag of a page.
type Script struct {
	ID  string
	Src string
}

// ScriptSet tracks the scripts injected into one page, at most one per id.
// It is owned by a single render and is not safe for concurrent use.
type ScriptSet struct {
	scripts []Script
}

// Inject adds the script unless one with the same id is already present.
// It reports whether the script was added.
func (s *ScriptSet) Inject(id, src string) bool {
	for _, sc := range s.scripts {
		if sc.ID == id {
			return false
		}
	}
	s.scripts = append(s.scripts, Script{ID: id, Src: src})
	return true
}

// Scripts returns the injected scripts in injection order.
func (s *ScriptSet) Scripts() []Script {
	return append([]Script(nil), s.scripts...)
}
