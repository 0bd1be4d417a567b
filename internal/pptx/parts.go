package pptx

import (
	"bytes"
	"encoding/xml"
	"strings"
)

const relationshipNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// slideText walks the slide XML and joins its text runs, grouped by
// paragraph.
func slideText(b []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var paragraphs []string
	var currentPara []string
	inParagraph := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" {
				inParagraph = true
				currentPara = nil
			}
		case xml.CharData:
			if inParagraph {
				s := strings.TrimSpace(string(t))
				if s != "" {
					currentPara = append(currentPara, s)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				text := strings.TrimSpace(strings.Join(currentPara, " "))
				if text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
				currentPara = nil
			}
		}
	}

	return strings.Join(paragraphs, "\n")
}

// embedReferences collects the relationship ids of every image
// reference on a slide, in document order. Three shapes are handled:
// modern drawing markup (a:blip r:embed), legacy vector markup
// (v:imagedata r:id), and a catch-all over any element carrying an
// embed attribute, to tolerate non-standard producers.
func embedReferences(b []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var ids []string
	seen := make(map[string]bool)

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		t, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		for _, a := range t.Attr {
			switch {
			case t.Name.Local == "blip" && a.Name.Local == "embed":
				add(a.Value)
			case t.Name.Local == "imagedata" && a.Name.Local == "id" && a.Name.Space == relationshipNS:
				add(a.Value)
			case a.Name.Local == "embed":
				add(a.Value)
			}
		}
	}

	return ids
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// parseRels maps relationship ids to their target paths.
func parseRels(b []byte) map[string]string {
	var rels relationshipsXML
	if err := xml.Unmarshal(b, &rels); err != nil {
		return nil
	}

	out := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		out[r.ID] = r.Target
	}
	return out
}
