package categorizer

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// KeywordSet holds the description keywords that map transaction text to a
// category type. The defaults are bilingual (Brazilian Portuguese and
// English) because statements from Brazilian institutions mix both.
type KeywordSet struct {
	Income   []string `yaml:"income"`
	Expense  []string `yaml:"expense"`
	Transfer []string `yaml:"transfer"`
}

// DefaultKeywords returns the built-in bilingual keyword tables
func DefaultKeywords() *KeywordSet {
	return &KeywordSet{
		Income: []string{
			"salario", "salary", "pagamento recebido", "payment received",
			"deposito", "deposit", "rendimento", "dividend", "dividendos",
			"juros", "interest", "aluguel recebido", "rent received",
			"reembolso", "refund", "credito em conta",
		},
		Expense: []string{
			"compra", "purchase", "pagamento", "payment", "mercado",
			"supermercado", "grocery", "restaurante", "restaurant",
			"farmacia", "pharmacy", "combustivel", "fuel", "posto",
			"tarifa", "fee", "anuidade", "mensalidade", "assinatura",
			"subscription", "boleto", "conta de luz", "conta de agua",
			"internet", "telefone", "phone", "saque", "withdrawal",
			"condominio", "iptu", "seguro", "insurance",
		},
		Transfer: []string{
			"transferencia", "transfer", "ted", "doc", "pix",
			"ted enviada", "ted recebida", "doc enviado", "doc recebido",
			"transferencia entre contas", "wire",
		},
	}
}

// LoadKeywords reads a YAML keyword override. Empty sections fall back to
// the defaults, so a file may override just one list.
func LoadKeywords(r io.Reader) (*KeywordSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}

	var loaded KeywordSet
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing keyword file: %w", err)
	}

	defaults := DefaultKeywords()
	if len(loaded.Income) == 0 {
		loaded.Income = defaults.Income
	}
	if len(loaded.Expense) == 0 {
		loaded.Expense = defaults.Expense
	}
	if len(loaded.Transfer) == 0 {
		loaded.Transfer = defaults.Transfer
	}
	return &loaded, nil
}

// accentFolder strips combining marks so "transferência" matches the
// unaccented keyword table.
var accentFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldText lower-cases and de-accents text for keyword scanning
func foldText(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		return folded
	}
	return s
}

// firstKeyword returns the first keyword contained in the folded text, or ""
func firstKeyword(foldedText string, keywords []string) string {
	for _, keyword := range keywords {
		if strings.Contains(foldedText, keyword) {
			return keyword
		}
	}
	return ""
}
