package parsers

import (
	"regexp"
	"strings"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
)

// FormatDetection is the outcome of sniffing a file's OFX variant
type FormatDetection struct {
	Format     models.OFXFormat
	Version    models.OFXVersion
	Confidence float64
}

var (
	sgmlVersionMarker = regexp.MustCompile(`VERSION:1\d{2}`)
	ofxOpenTag        = regexp.MustCompile(`<(?i:OFX)>`)
	ofxCloseTag       = regexp.MustCompile(`</(?i:OFX)>`)
	anyOpenTag        = regexp.MustCompile(`<[A-Za-z]`)
)

// sgmlHeaderMarkers are the OFX 1.x header lines; each marker found raises
// detection confidence by 0.05 on top of a 0.8 base.
var sgmlHeaderMarkers = []string{"OFXHEADER:100", "DATA:OFXSGML"}

// DetectFormat determines the OFX variant of the given content. The checks
// are ordered and the first match wins; the only failure mode is empty input.
func DetectFormat(content string) (*FormatDetection, *errors.ImportError) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.FileFormatError(errors.CodeEmptyFile, "file is empty or contains only whitespace")
	}

	// An XML declaration is definitive for OFX 2.x
	if strings.HasPrefix(trimmed, "<?xml") {
		return &FormatDetection{Format: models.FormatXML, Version: models.Version2, Confidence: 0.95}, nil
	}

	// OFX 1.x header markers
	matches := 0
	for _, marker := range sgmlHeaderMarkers {
		if strings.Contains(content, marker) {
			matches++
		}
	}
	if sgmlVersionMarker.MatchString(content) {
		matches++
	}
	if matches >= 1 {
		return &FormatDetection{
			Format:     models.FormatSGML,
			Version:    models.Version1,
			Confidence: 0.8 + 0.05*float64(matches),
		}, nil
	}

	// A bare <OFX> root: a matching closing tag means well-formed XML, an
	// unterminated one is the signature of tag-soup SGML.
	if ofxOpenTag.MatchString(content) {
		if ofxCloseTag.MatchString(content) {
			return &FormatDetection{Format: models.FormatXML, Version: models.Version2, Confidence: 0.9}, nil
		}
		return &FormatDetection{Format: models.FormatSGML, Version: models.Version1, Confidence: 0.7}, nil
	}

	return &FormatDetection{Format: models.FormatSGML, Version: models.Version1, Confidence: 0.5}, nil
}

// requiredMessageSets are the statement containers at least one of which must
// be present for a file to be importable.
var requiredMessageSets = []string{"BANKMSGSRSV1", "CREDITCARDMSGSRSV1", "INVSTMTMSGSRSV1"}

// ValidateStructure performs the format-specific structural check plus the
// required-elements check. A failure here marks the whole parse unsuccessful.
func ValidateStructure(content string, format models.OFXFormat) *errors.ImportError {
	switch format {
	case models.FormatXML:
		if err := validateTagBalance(content); err != nil {
			return err
		}
	case models.FormatSGML:
		if !anyOpenTag.MatchString(content) {
			return errors.FileFormatError(errors.CodeUndetectableFormat, "no OFX tags found in SGML content")
		}
	}

	upper := strings.ToUpper(content)
	if !strings.Contains(upper, "<OFX>") {
		return errors.FileFormatError(errors.CodeMissingStructure, "missing <OFX> root element")
	}

	for _, set := range requiredMessageSets {
		if strings.Contains(upper, "<"+set+">") {
			return nil
		}
	}
	return errors.FileFormatError(errors.CodeMissingStructure,
		"missing statement container: expected one of BANKMSGSRSV1, CREDITCARDMSGSRSV1, INVSTMTMSGSRSV1")
}

var xmlTagToken = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9._-]*)[^>]*?(/?)>`)

// validateTagBalance checks that every opened XML tag is closed in order.
// Declarations, comments, and self-closing tags are ignored.
func validateTagBalance(content string) *errors.ImportError {
	var stack []string

	for _, m := range xmlTagToken.FindAllStringSubmatchIndex(content, -1) {
		closing := content[m[2]:m[3]] == "/"
		name := strings.ToUpper(content[m[4]:m[5]])
		selfClosing := content[m[6]:m[7]] == "/"

		if selfClosing {
			continue
		}
		if closing {
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return errors.FileFormatError(errors.CodeUndetectableFormat,
					"unbalanced XML: unexpected closing tag </"+name+">").WithLine(lineAt(content, m[0]))
			}
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, name)
	}

	if len(stack) > 0 {
		return errors.FileFormatError(errors.CodeUndetectableFormat,
			"unbalanced XML: unclosed tag <"+stack[len(stack)-1]+">")
	}
	return nil
}

// lineAt returns the 1-based line number of a byte offset
func lineAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}
