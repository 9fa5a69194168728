package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const encryptedSuffix = ".enc"

// GeneratePayslipPDF renders the full gross-to-net breakdown for one employee
// and writes it under the payslip directory. The file is AES-GCM encrypted
// when a data key is configured.
func (s *Service) GeneratePayslipPDF(ctx context.Context, periodID, employeeID, payslipID string) (string, error) {
	data, err := s.store.PayslipPDFData(ctx, periodID, employeeID)
	if err != nil {
		return "", err
	}
	content, err := RenderPayslip(data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.payslipDir, 0o750); err != nil {
		return "", err
	}
	filePath := filepath.Join(s.payslipDir, payslipID+".pdf")

	if s.crypto.Configured() {
		encrypted, err := s.crypto.Encrypt(content)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + encryptedSuffix
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		return encryptedPath, nil
	}

	if err := os.WriteFile(filePath, content, 0o600); err != nil {
		return "", err
	}
	return filePath, nil
}

func RenderPayslip(data PayslipPDFData) ([]byte, error) {
	calc := data.Result
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s", data.FullName))
	pdf.Ln(6)
	if data.Email != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Email: %s", data.Email))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s (%s)", data.StartDate.Format("2006-01-02"), data.EndDate.Format("2006-01-02"), calc.PayPeriod))
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	line := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(120, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, "PHP "+amount.StringFixed(2), "", 1, "R", false, 0, "")
	}
	total := func(label string, amount decimal.Decimal) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(120, 8, label, "T", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, "PHP "+amount.StringFixed(2), "T", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.Ln(3)
	}

	section("Earnings")
	line("Basic pay", calc.BasicPay)
	line("Overtime pay", calc.OvertimePay)
	line("Allowances", calc.Allowances)
	total("Gross pay", calc.GrossPay)

	section("Deductions")
	line("SSS contribution", calc.Deductions.SSS)
	line("PhilHealth contribution", calc.Deductions.PhilHealth)
	line("Pag-IBIG contribution", calc.Deductions.PagIbig)
	line("Withholding tax", calc.Deductions.WithholdingTax)
	total("Total deductions", calc.Deductions.TotalDeductions)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(120, 10, "Net pay", "TB", 0, "L", false, 0, "")
	pdf.CellFormat(50, 10, "PHP "+calc.NetPay.StringFixed(2), "TB", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OpenPayslip returns the decrypted PDF for a payslip, rendering it first
// when an earlier finalize could not.
func (s *Service) OpenPayslip(ctx context.Context, ref PayslipRef) (PayslipFile, error) {
	fileURL := ref.FileURL
	if fileURL == "" {
		rendered, err := s.renderAndStore(ctx, ref.PeriodID, ref.EmployeeID, ref.ID)
		if err != nil {
			s.logger.Warn("payslip pdf generation failed", "payslipId", ref.ID, "err", err)
			return PayslipFile{}, ErrPayslipUnavailable
		}
		fileURL = rendered
	}

	content, err := os.ReadFile(fileURL)
	if errors.Is(err, os.ErrNotExist) {
		return PayslipFile{}, ErrPayslipUnavailable
	}
	if err != nil {
		return PayslipFile{}, err
	}
	if strings.HasSuffix(fileURL, encryptedSuffix) {
		content, err = s.crypto.Decrypt(content)
		if err != nil {
			return PayslipFile{}, fmt.Errorf("decrypt payslip: %w", err)
		}
	}
	return PayslipFile{Name: "payslip-" + ref.ID + ".pdf", Content: content}, nil
}

func (s *Service) removeFiles(files []string) {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("payslip file remove failed", "file", file, "err", err)
		}
	}
}
