package parse

// Kind is the outcome of classifying one line.
type Kind int

// Classification kinds.
const (
	KindNone Kind = iota
	KindSale
	KindNameUpdate
)

func (k Kind) String() string {
	switch k {
	case KindSale:
		return "sale"
	case KindNameUpdate:
		return "name_update"
	default:
		return "none"
	}
}

const (
	salePhrase = "ha pagado una factura"
	saleTarget = "de ["
)

// Classification is what a line means. Identifier and Amount are set for sales, Identifier and
// Name for name updates. Reason explains a KindNone result for tracing.
type Classification struct {
	Kind       Kind
	Identifier string
	Amount     int64
	Name       string
	Reason     string
}

// Classifier applies the decision policy over normalized text.
type Classifier struct {
	ex Extractor
}

// NewClassifier builds a Classifier on ex; nil selects the RegexExtractor.
func NewClassifier(ex Extractor) *Classifier {
	if ex == nil {
		ex = NewRegexExtractor()
	}
	return &Classifier{ex: ex}
}

// Classify decides between sale, name update and noise, matching keywords case-insensitively.
// The checks run in order and the first candidate category wins, so a sale line is never
// considered for a name update.
func (c *Classifier) Classify(normalized string) Classification {
	if from := indexASCIIFold(normalized, salePhrase); from >= 0 && indexASCIIFold(normalized, saleTarget) >= 0 {
		return c.classifySale(normalized, from)
	}

	for _, verb := range nameVerbs {
		if indexASCIIFold(normalized, verb) >= 0 {
			return c.classifyName(normalized)
		}
	}
	return Classification{Kind: KindNone, Reason: "no_keyword"}
}

func (c *Classifier) classifySale(normalized string, from int) Classification {
	// The seller's code follows "de [" after the sale phrase. Any code earlier in the line
	// belongs to the payer.
	at := indexASCIIFold(normalized[from:], saleTarget)
	if at >= 0 {
		at += from
	} else {
		at = indexASCIIFold(normalized, saleTarget)
	}
	id, ok := c.ex.ExtractIdentifier(normalized[at:])
	if !ok {
		return Classification{Kind: KindNone, Reason: "sale_without_identifier"}
	}
	amount := c.ex.ExtractAmount(normalized)
	if amount <= 0 {
		return Classification{Kind: KindNone, Identifier: id, Reason: "sale_without_amount"}
	}
	return Classification{Kind: KindSale, Identifier: id, Amount: amount}
}

func (c *Classifier) classifyName(normalized string) Classification {
	id, ok := c.ex.ExtractIdentifier(normalized)
	if !ok {
		return Classification{Kind: KindNone, Reason: "name_without_identifier"}
	}
	name, ok := c.ex.ExtractName(normalized)
	if !ok {
		return Classification{Kind: KindNone, Identifier: id, Reason: "name_without_name"}
	}
	return Classification{Kind: KindNameUpdate, Identifier: id, Name: name}
}

// indexASCIIFold is strings.Index with ASCII case folding. sub must be ASCII; offsets are
// byte offsets into s, which lower-casing the whole line would not preserve.
func indexASCIIFold(s, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			if toLowerASCII(s[i+j]) != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
