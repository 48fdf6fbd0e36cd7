package billing

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// formatAmount renders a monetary value the way the back-office expects,
// with pt-BR separators (1.890,50).
func formatAmount(v float64) string {
	return ptBR.Sprintf("%v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// WriteCSV streams invoices as a semicolon-separated export, the layout the
// finance team imports into their spreadsheet.
func WriteCSV(w io.Writer, invoices []Invoice) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"id", "contrato", "competencia", "vencimento", "valor", "status", "pagamento", "metodo", "dias_atraso", "multa"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, inv := range invoices {
		payment := ""
		if inv.PaymentDate != nil {
			payment = inv.PaymentDate.Format("02/01/2006")
		}
		record := []string{
			strconv.FormatInt(inv.ID, 10),
			strconv.FormatInt(inv.ContractID, 10),
			inv.ReferenceMonth,
			inv.DueDate.Format("02/01/2006"),
			formatAmount(inv.Amount),
			string(inv.Status),
			payment,
			inv.PaymentMethod,
			strconv.Itoa(inv.DaysLate),
			formatAmount(inv.LateFee),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
