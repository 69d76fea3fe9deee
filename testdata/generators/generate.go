// Command generate produces sample OFX statement files for manual testing.
//
// Usage:
//
//	go run generate.go -output-dir ../generated -count 50 -format sgml
//	go run generate.go -output-dir ../generated -count 20 -format xml -duplicates 5
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var descriptions = []string{
	"COMPRA SUPERMERCADO BOM PRECO",
	"PAGAMENTO CARTAO CREDITO",
	"TED RECEBIDA EMPRESA LTDA",
	"PIX TRANSFERENCIA",
	"SALARIO MENSAL",
	"CONTA DE LUZ CEMIG",
	"RESTAURANTE SABOR CASEIRO",
	"POSTO COMBUSTIVEL SHELL",
	"ALUGUEL RECEBIDO APT101",
	"TARIFA MANUTENCAO CONTA",
}

type generatedTxn struct {
	fitID       string
	date        time.Time
	amount      decimal.Decimal
	description string
	txnType     string
}

func main() {
	var (
		outputDir  = flag.String("output-dir", "../generated", "output directory")
		count      = flag.Int("count", 25, "number of transactions")
		duplicates = flag.Int("duplicates", 0, "number of near-duplicate pairs to inject")
		format     = flag.String("format", "sgml", "statement format: sgml or xml")
		seed       = flag.Int64("seed", 42, "random seed for reproducible output")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	txns := generate(rng, *count, *duplicates)

	var content string
	switch *format {
	case "sgml":
		content = renderSGML(txns)
	case "xml":
		content = renderXML(txns)
	default:
		log.Fatalf("unknown format %q, expected sgml or xml", *format)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}
	path := filepath.Join(*outputDir, fmt.Sprintf("statement_%s_%d.ofx", *format, *count))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("writing %s: %v", path, err)
	}
	fmt.Printf("Wrote %d transactions to %s\n", len(txns), path)
}

func generate(rng *rand.Rand, count, duplicates int) []generatedTxn {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	txns := make([]generatedTxn, 0, count+duplicates)

	for i := 0; i < count; i++ {
		amount := decimal.NewFromFloat(rng.Float64()*2000 - 1000).Round(2)
		txnType := "DEBIT"
		if amount.IsPositive() {
			txnType = "CREDIT"
		}
		txns = append(txns, generatedTxn{
			fitID:       fmt.Sprintf("GEN%06d", i+1),
			date:        base.AddDate(0, 0, rng.Intn(28)),
			amount:      amount,
			description: descriptions[rng.Intn(len(descriptions))],
			txnType:     txnType,
		})
	}

	// Near-duplicates: same amount and description, shifted a day, new id
	for i := 0; i < duplicates && i < len(txns); i++ {
		dup := txns[i]
		dup.fitID = fmt.Sprintf("DUP%06d", i+1)
		dup.date = dup.date.AddDate(0, 0, 1)
		txns = append(txns, dup)
	}
	return txns
}

func renderSGML(txns []generatedTxn) string {
	var b strings.Builder
	b.WriteString("OFXHEADER:100\nDATA:OFXSGML\nVERSION:102\nSECURITY:NONE\nENCODING:USASCII\n\n")
	b.WriteString("<OFX>\n<BANKMSGSRSV1>\n<STMTTRNRS>\n<STMTRS>\n<CURDEF>BRL\n")
	b.WriteString("<BANKACCTFROM>\n<BANKID>341\n<ACCTID>12345-6\n<ACCTTYPE>CHECKING\n</BANKACCTFROM>\n")
	b.WriteString("<BANKTRANLIST>\n")
	for _, txn := range txns {
		fmt.Fprintf(&b, "<STMTTRN>\n<TRNTYPE>%s\n<DTPOSTED>%s\n<TRNAMT>%s\n<FITID>%s\n<NAME>%s\n</STMTTRN>\n",
			txn.txnType, txn.date.Format("20060102"), txn.amount.StringFixed(2), txn.fitID, txn.description)
	}
	b.WriteString("</BANKTRANLIST>\n</STMTRS>\n</STMTTRNRS>\n</BANKMSGSRSV1>\n</OFX>\n")
	return b.String()
}

func renderXML(txns []generatedTxn) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<?OFX OFXHEADER=\"200\" VERSION=\"211\"?>\n")
	b.WriteString("<OFX>\n  <BANKMSGSRSV1>\n    <STMTTRNRS>\n      <STMTRS>\n        <CURDEF>BRL</CURDEF>\n")
	b.WriteString("        <BANKACCTFROM>\n          <BANKID>341</BANKID>\n          <ACCTID>12345-6</ACCTID>\n          <ACCTTYPE>CHECKING</ACCTTYPE>\n        </BANKACCTFROM>\n")
	b.WriteString("        <BANKTRANLIST>\n")
	for _, txn := range txns {
		fmt.Fprintf(&b, "          <STMTTRN>\n            <TRNTYPE>%s</TRNTYPE>\n            <DTPOSTED>%s</DTPOSTED>\n            <TRNAMT>%s</TRNAMT>\n            <FITID>%s</FITID>\n            <NAME>%s</NAME>\n          </STMTTRN>\n",
			txn.txnType, txn.date.Format("20060102"), txn.amount.StringFixed(2), txn.fitID, txn.description)
	}
	b.WriteString("        </BANKTRANLIST>\n      </STMTRS>\n    </STMTTRNRS>\n  </BANKMSGSRSV1>\n</OFX>\n")
	return b.String()
}
