// Package definexml renders the Define-XML v2.1 / ODM 1.3.2 document that
// describes an export session's datasets, variables, and codelists.
// It builds the document as a tree of struct-tagged types
// and marshals it with encoding/xml, the idiom the retrieval pack's XML
// consumers use rather than a streaming token writer.
package definexml

import (
	"encoding/xml"
)

const (
	odmNS       = "http://www.cdisc.org/ns/odm/v1.3"
	defNS       = "http://www.cdisc.org/ns/def/v2.1"
	xlinkNS     = "http://www.w3.org/1999/xlink"
	odmVersion  = "1.3.2"
	defVersion  = "2.1"
	originator  = "sdtmkit"
)

// ODM is the document root.
type ODM struct {
	XMLName             xml.Name `xml:"ODM"`
	Xmlns               string   `xml:"xmlns,attr"`
	XmlnsDef            string   `xml:"xmlns:def,attr"`
	XmlnsXlink          string   `xml:"xmlns:xlink,attr"`
	FileType            string   `xml:"FileType,attr"`
	FileOID             string   `xml:"FileOID,attr"`
	ODMVersion          string   `xml:"ODMVersion,attr"`
	CreationDateTime    string   `xml:"CreationDateTime,attr"`
	Originator          string   `xml:"Originator,attr"`
	SourceSystem        string   `xml:"SourceSystem,attr"`
	SourceSystemVersion string   `xml:"SourceSystemVersion,attr"`
	DefContext          string   `xml:"def:Context,attr"`
	Study               Study    `xml:"Study"`
}

// Study wraps the metadata version.
type Study struct {
	OID             string          `xml:"OID,attr"`
	GlobalVariables GlobalVariables `xml:"GlobalVariables"`
	MetaDataVersion MetaDataVersion `xml:"MetaDataVersion"`
}

// GlobalVariables carries the study-identifying text block every ODM
// document requires.
type GlobalVariables struct {
	StudyName        string `xml:"StudyName"`
	StudyDescription string `xml:"StudyDescription"`
	ProtocolName     string `xml:"ProtocolName"`
}

// MetaDataVersion is the container for everything the export describes.
type MetaDataVersion struct {
	OID           string         `xml:"OID,attr"`
	Name          string         `xml:"Name,attr"`
	Description   string         `xml:"Description,attr"`
	DefDefineVer  string         `xml:"def:DefineVersion,attr"`
	Standards     *StandardsList `xml:"def:Standards"`
	ItemGroupDefs []ItemGroupDef `xml:"ItemGroupDef"`
	ItemDefs      []ItemDef      `xml:"ItemDef"`
	CodeLists     []CodeList     `xml:"CodeList"`
}

// StandardsList enumerates the CT catalogs referenced anywhere in the
// export.
type StandardsList struct {
	Standards []Standard `xml:"def:Standard"`
}

// Standard is one entry in StandardsList.
type Standard struct {
	OID           string `xml:"OID,attr"`
	Name          string `xml:"Name,attr"`
	Type          string `xml:"Type,attr"`
	PublishingSet string `xml:"PublishingSet,attr"`
	Version       string `xml:"Version,attr"`
	Status        string `xml:"Status,attr"`
}

// ItemGroupDef describes one exported dataset.
type ItemGroupDef struct {
	OID                string    `xml:"OID,attr"`
	Name               string    `xml:"Name,attr"`
	Repeating          string    `xml:"Repeating,attr"`
	Domain             string    `xml:"Domain,attr"`
	SASDatasetName     string    `xml:"SASDatasetName,attr"`
	DefLabel           string    `xml:"def:Label,attr,omitempty"`
	DefClass           string    `xml:"def:Class,attr,omitempty"`
	DefStructure       string    `xml:"def:Structure,attr,omitempty"`
	DefIsReferenceData string    `xml:"def:IsReferenceData,attr,omitempty"`
	ItemRefs           []ItemRef `xml:"ItemRef"`
}

// ItemRef binds an ItemDef into an ItemGroupDef in role order.
type ItemRef struct {
	ItemOID     string `xml:"ItemOID,attr"`
	OrderNumber string `xml:"OrderNumber,attr"`
	Mandatory   string `xml:"Mandatory,attr"`
	KeySequence string `xml:"KeySequence,attr,omitempty"`
}

// ItemDef describes one variable's shape across every dataset that uses it.
type ItemDef struct {
	OID         string       `xml:"OID,attr"`
	Name        string       `xml:"Name,attr"`
	DataType    string       `xml:"DataType,attr"`
	Length      string       `xml:"Length,attr,omitempty"`
	Description *Description `xml:"Description"`
	CodeListRef *CodeListRef `xml:"CodeListRef"`
	Origin      Origin       `xml:"def:Origin"`
}

// Description wraps a single TranslatedText.
type Description struct {
	TranslatedText TranslatedText `xml:"TranslatedText"`
}

// TranslatedText is ODM's language-tagged text element.
type TranslatedText struct {
	Lang string `xml:"xml:lang,attr"`
	Text string `xml:",chardata"`
}

// CodeListRef points an ItemDef at its CodeList.
type CodeListRef struct {
	CodeListOID string `xml:"CodeListOID,attr"`
}

// Origin records whether a value was collected, derived, or never
// collected.
type Origin struct {
	Type string `xml:"Type,attr"`
}

// CodeList is one merged controlled-terminology codelist actually used by
// the export.
type CodeList struct {
	OID            string         `xml:"OID,attr"`
	Name           string         `xml:"Name,attr"`
	DataType       string         `xml:"DataType,attr"`
	DefStandardOID string         `xml:"def:StandardOID,attr,omitempty"`
	DefExtensible  string         `xml:"def:Extensible,attr,omitempty"`
	Items          []CodeListItem `xml:"CodeListItem"`
}

// CodeListItem is one submission value within a CodeList.
type CodeListItem struct {
	CodedValue string      `xml:"CodedValue,attr"`
	Decode     Description `xml:"Decode"`
}

// Marshal renders doc as an indented, UTF-8-declared XML document.
func Marshal(doc *ODM) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := []byte(xml.Header)
	out = append(out, body...)
	return out, nil
}
