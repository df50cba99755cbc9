// Package material defines the knowledge-source model: a Material owns Items,
// each Item is exactly one concrete source (raw text, a file or a link), and
// Chunks derived from file and link items carry a back-reference to them.
package material

import (
	"fmt"
	"strings"
)

// Material is a logical container of knowledge sources, e.g. "product FAQ".
type Material struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items,omitempty"`
}

// SourceKind identifies which variant an Item holds.
type SourceKind string

const (
	KindText SourceKind = "text"
	KindFile SourceKind = "file"
	KindLink SourceKind = "link"
)

// Source is the sealed set of concrete item sources. Only TextSource,
// FileSource and LinkSource implement it.
type Source interface {
	Kind() SourceKind
	isSource()
}

// TextSource is raw text supplied inline.
type TextSource struct {
	Text string `json:"text"`
}

// FileSource is a file on the local file system.
type FileSource struct {
	FileID string `json:"file_id"`
	Path   string `json:"path"`
}

// LinkSource is a web page fetched over HTTP(S).
type LinkSource struct {
	LinkID string `json:"link_id"`
	URL    string `json:"url"`
}

func (TextSource) Kind() SourceKind { return KindText }
func (FileSource) Kind() SourceKind { return KindFile }
func (LinkSource) Kind() SourceKind { return KindLink }

func (TextSource) isSource() {}
func (FileSource) isSource() {}
func (LinkSource) isSource() {}

// Item is one concrete source belonging to a Material.
type Item struct {
	MaterialID string
	Source     Source
}

// NewTextItem returns an Item backed by raw text.
func NewTextItem(materialID, text string) Item {
	return Item{MaterialID: materialID, Source: TextSource{Text: text}}
}

// NewFileItem returns an Item backed by a file. The fileID is the identifier
// chunks reference; it defaults to the path when empty.
func NewFileItem(materialID, fileID, path string) Item {
	if fileID == "" {
		fileID = path
	}
	return Item{MaterialID: materialID, Source: FileSource{FileID: fileID, Path: path}}
}

// NewLinkItem returns an Item backed by a URL. The linkID defaults to the URL
// when empty.
func NewLinkItem(materialID, linkID, url string) Item {
	if linkID == "" {
		linkID = url
	}
	return Item{MaterialID: materialID, Source: LinkSource{LinkID: linkID, URL: url}}
}

// Ref returns the chunk back-reference for file and link items. Text items
// have no owning file or link, so ok is false.
func (i Item) Ref() (ref SourceRef, ok bool) {
	switch src := i.Source.(type) {
	case FileSource:
		return SourceRef{Kind: KindFile, ID: src.FileID}, true
	case LinkSource:
		return SourceRef{Kind: KindLink, ID: src.LinkID}, true
	default:
		return SourceRef{}, false
	}
}

// Describe returns a short human-readable label for logs and errors.
func (i Item) Describe() string {
	switch src := i.Source.(type) {
	case TextSource:
		return fmt.Sprintf("text(%d chars)", len(src.Text))
	case FileSource:
		return "file:" + src.Path
	case LinkSource:
		return "link:" + src.URL
	default:
		return "unknown"
	}
}

// Validate checks that the item holds exactly one usable source.
func (i Item) Validate() error {
	switch src := i.Source.(type) {
	case TextSource:
		return nil
	case FileSource:
		if strings.TrimSpace(src.Path) == "" {
			return fmt.Errorf("%w: file path is empty", ErrInvalidItem)
		}
	case LinkSource:
		if strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("%w: url is empty", ErrInvalidItem)
		}
	default:
		return fmt.Errorf("%w: no source set", ErrInvalidItem)
	}
	return nil
}

// ParseItem resolves a loose payload with three optional fields into an Item.
// Exactly one of text, path or url must be non-empty; zero or several set
// fields are rejected with ErrAmbiguousSource rather than guessing.
func ParseItem(materialID, text, path, url, fileID, linkID string) (Item, error) {
	var set []SourceKind
	if strings.TrimSpace(text) != "" {
		set = append(set, KindText)
	}
	if strings.TrimSpace(path) != "" {
		set = append(set, KindFile)
	}
	if strings.TrimSpace(url) != "" {
		set = append(set, KindLink)
	}

	if len(set) != 1 {
		return Item{}, &AmbiguousSourceError{Set: set}
	}

	switch set[0] {
	case KindFile:
		return NewFileItem(materialID, fileID, path), nil
	case KindLink:
		return NewLinkItem(materialID, linkID, url), nil
	default:
		return NewTextItem(materialID, text), nil
	}
}
