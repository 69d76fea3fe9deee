package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantFormat     models.OFXFormat
		wantVersion    models.OFXVersion
		wantConfidence float64
	}{
		{
			name:           "xml declaration",
			content:        `<?xml version="1.0" encoding="UTF-8"?><OFX></OFX>`,
			wantFormat:     models.FormatXML,
			wantVersion:    models.Version2,
			wantConfidence: 0.95,
		},
		{
			name:           "full sgml header",
			content:        "OFXHEADER:100\nDATA:OFXSGML\nVERSION:102\n\n<OFX>",
			wantFormat:     models.FormatSGML,
			wantVersion:    models.Version1,
			wantConfidence: 0.95,
		},
		{
			name:           "single sgml marker",
			content:        "DATA:OFXSGML\n<OFX>",
			wantFormat:     models.FormatSGML,
			wantVersion:    models.Version1,
			wantConfidence: 0.85,
		},
		{
			name:           "bare ofx root with closing tag",
			content:        "<OFX><BANKMSGSRSV1></BANKMSGSRSV1></OFX>",
			wantFormat:     models.FormatXML,
			wantVersion:    models.Version2,
			wantConfidence: 0.9,
		},
		{
			name:           "bare ofx root unterminated",
			content:        "<OFX><BANKMSGSRSV1><STMTTRN>",
			wantFormat:     models.FormatSGML,
			wantVersion:    models.Version1,
			wantConfidence: 0.7,
		},
		{
			name:           "unrecognized content defaults to sgml",
			content:        "some random text",
			wantFormat:     models.FormatSGML,
			wantVersion:    models.Version1,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detection, err := DetectFormat(tt.content)
			require.Nil(t, err)
			assert.Equal(t, tt.wantFormat, detection.Format)
			assert.Equal(t, tt.wantVersion, detection.Version)
			assert.InDelta(t, tt.wantConfidence, detection.Confidence, 0.001)
		})
	}
}

func TestDetectFormatEmptyInput(t *testing.T) {
	for _, content := range []string{"", "   \n\t  "} {
		detection, err := DetectFormat(content)
		require.NotNil(t, err)
		assert.Nil(t, detection)
		assert.Equal(t, errors.TypeFileFormat, err.Type)
		assert.Equal(t, errors.CodeEmptyFile, err.Code)
	}
}

func TestValidateStructure(t *testing.T) {
	t.Run("sgml with message set passes", func(t *testing.T) {
		content := "OFXHEADER:100\n<OFX><BANKMSGSRSV1><STMTTRN>"
		assert.Nil(t, ValidateStructure(content, models.FormatSGML))
	})

	t.Run("missing root element", func(t *testing.T) {
		err := ValidateStructure("<BANKMSGSRSV1>", models.FormatSGML)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeMissingStructure, err.Code)
	})

	t.Run("missing message set", func(t *testing.T) {
		err := ValidateStructure("<OFX><SIGNONMSGSRSV1>", models.FormatSGML)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeMissingStructure, err.Code)
	})

	t.Run("balanced xml passes", func(t *testing.T) {
		content := `<?xml version="1.0"?><OFX><BANKMSGSRSV1><STMTTRN><FITID>1</FITID></STMTTRN></BANKMSGSRSV1></OFX>`
		assert.Nil(t, ValidateStructure(content, models.FormatXML))
	})

	t.Run("unbalanced xml fails", func(t *testing.T) {
		content := `<OFX><BANKMSGSRSV1><STMTTRN></BANKMSGSRSV1></OFX>`
		err := ValidateStructure(content, models.FormatXML)
		require.NotNil(t, err)
		assert.Equal(t, errors.TypeFileFormat, err.Type)
	})

	t.Run("unclosed xml tag fails", func(t *testing.T) {
		err := ValidateStructure(`<OFX><BANKMSGSRSV1>`, models.FormatXML)
		require.NotNil(t, err)
	})
}
