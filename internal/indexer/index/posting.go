package index

// Attributes of an indexed document, in ranking priority order.
const (
	AttributeTitle uint16 = iota
	AttributeBody
)

// Occurrence is one appearance of a term inside a document attribute.
type Occurrence struct {
	Attribute uint16 `json:"a"`
	Position  uint32 `json:"p"`
	Offset    uint32 `json:"o"`
	Length    uint16 `json:"l"`
}

type Posting struct {
	DocID       string       `json:"d"`
	Frequency   int          `json:"f"`
	Occurrences []Occurrence `json:"occ"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// Field is one attribute of a document handed to the index.
type Field struct {
	Attribute uint16
	Text      string
}

// DocInfo is the per-document metadata kept next to the postings.
type DocInfo struct {
	DocID  string `json:"id"`
	Title  string `json:"title"`
	Length int    `json:"len"`
}
