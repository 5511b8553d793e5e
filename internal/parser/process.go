package parser

// ProcessMethod is the canonical post-harvest processing bucket.
type ProcessMethod string

const (
	ProcessWashed             ProcessMethod = "washed"
	ProcessNatural            ProcessMethod = "natural"
	ProcessHoney              ProcessMethod = "honey"
	ProcessAnaerobic          ProcessMethod = "anaerobic"
	ProcessMonsooned          ProcessMethod = "monsooned"
	ProcessWetHulled          ProcessMethod = "wet_hulled"
	ProcessCarbonicMaceration ProcessMethod = "carbonic_maceration"
	ProcessOther              ProcessMethod = "other"
)

// Fermentation variants come first: "anaerobic natural" is anaerobic.
// Wet hulled precedes washed so "semi-washed" does not land in washed.
var processPrimary = Table[ProcessMethod]{
	rule(ProcessCarbonicMaceration, `\bcarbonic[\s-]*maceration\b`, `\bcarbonic\b`),
	rule(ProcessAnaerobic, `\banaerobic\b`, `\bthermal[\s-]*shock\b`, `\bdouble[\s-]*ferment(ed|ation)?\b`),
	rule(ProcessMonsooned, `\bmonsoon(ed)?\b`),
	rule(ProcessWetHulled, `\bwet[\s-]*hulled\b`, `\bgiling[\s-]*basah\b`, `\bsemi[\s-]*washed\b`),
	rule(ProcessHoney, `\bhoney\b`, `\bpulped[\s-]*natural\b`, `\bmiel\b`),
	rule(ProcessNatural, `\bnatural\b`, `\bdry[\s-]*process(ed)?\b`, `\bsun[\s-]*dried\b`, `\bunwashed\b`),
	rule(ProcessWashed, `\bwashed\b`, `\bwet[\s-]*process(ed)?\b`, `\bfully[\s-]*washed\b`, `\blavado\b`),
}

var processFallback = Table[ProcessMethod]{
	rule(ProcessNatural, `\bcherry\s*(robusta|arabica)\b`),
	rule(ProcessWashed, `\bparchment\b`, `\bplantation\s*[ab]\b`),
	rule(ProcessAnaerobic, `\bfermented\b`),
}

// ProcessParser maps product text to a ProcessMethod.
type ProcessParser struct{}

// NewProcessParser creates a process parser.
func NewProcessParser() *ProcessParser { return &ProcessParser{} }

// Parse walks the same ladder as the roast parser; the description is
// restricted to clauses that mention processing.
func (p *ProcessParser) Parse(in ProductText) Result[ProcessMethod] {
	cands := productCandidates(in, "process")
	original := joinTexts(cands)
	return safely(ProcessOther, original, func() Result[ProcessMethod] {
		if r, ok := ladder(cands, processPrimary, processFallback); ok {
			return r
		}
		return noMatch(ProcessOther, original, "no process pattern matched")
	})
}

// ParseText parses a single free-text process description.
func (p *ProcessParser) ParseText(text string) Result[ProcessMethod] {
	return p.Parse(ProductText{Title: text})
}
