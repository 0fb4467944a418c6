package handlers

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"billing/internal/resource"
	"billing/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/phpdave11/gofpdf"
)

// InvoiceHandler renders a printable invoice PDF for a due. Only the
// due's creator can download it.
type InvoiceHandler struct {
	DB *sql.DB
}

type invoiceData struct {
	DueID        int64
	InvoiceNum   int64
	Name         string
	Amount       float64
	Type         string
	DueDate      string
	CustomerName string
	CustomerTel  string
	BusinessName string
	Paid         bool
}

// GET /api/dues/:id/invoice
func (h InvoiceHandler) Get(c *gin.Context) {
	caller := resource.CallerFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusNotFound, "Resource not found", nil)
		return
	}

	data, err := h.load(c, id, int64(caller.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			RespondError(c, http.StatusNotFound, "Resource not found", nil)
		} else {
			RespondError(c, http.StatusInternalServerError, "failed to load due", err)
		}
		return
	}

	utils.LogEvent(requestID(c), "invoice", "generate", fmt.Sprintf("due_id=%d", id))

	pdfBytes, filename, err := buildInvoicePDF(data)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to render invoice", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h InvoiceHandler) load(c *gin.Context, dueID, callerID int64) (invoiceData, error) {
	var (
		out        invoiceData
		invoiceNum sql.NullInt64
		dueDate    sql.NullString
		lastName   sql.NullString
		business   sql.NullString
		paidCount  int
	)
	err := h.DB.QueryRowContext(c.Request.Context(), `
        SELECT d.id, d.invoice_num, d.name, d.amount, d.transaction_type, d.due_date,
               cu.first_name, cu.last_name, cu.mobile_number, cr.business_name,
               (SELECT COUNT(*) FROM payments WHERE payments.due_id = d.id)
        FROM dues d
        JOIN users cu ON cu.id = d.customer_id
        JOIN users cr ON cr.id = d.creator_id
        WHERE d.id = ? AND d.creator_id = ?
    `, dueID, callerID).Scan(
		&out.DueID, &invoiceNum, &out.Name, &out.Amount, &out.Type, &dueDate,
		&out.CustomerName, &lastName, &out.CustomerTel, &business, &paidCount,
	)
	if err != nil {
		return out, err
	}
	out.InvoiceNum = invoiceNum.Int64
	out.DueDate = dueDate.String
	out.BusinessName = business.String
	out.Paid = paidCount > 0
	if lastName.String != "" {
		out.CustomerName = strings.TrimSpace(out.CustomerName + " " + lastName.String)
	}
	return out, nil
}

func buildInvoicePDF(d invoiceData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	invNo := fmt.Sprintf("INV-%d", d.InvoiceNum)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice No : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Date       : "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(7)
	if d.BusinessName != "" {
		pdf.Cell(0, 7, "From       : "+d.BusinessName)
		pdf.Ln(7)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Name   : "+safe(d.CustomerName, "-"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Phone  : "+safe(d.CustomerTel, "-"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Details:")
	pdf.Ln(8)

	desc := d.Name
	if d.Type == "subscription" && d.DueDate != "" {
		desc = fmt.Sprintf("%s (recurring, next due %s)", d.Name, d.DueDate)
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, "1) "+desc, "", "", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: INR %.2f", d.Amount))
	pdf.Ln(10)

	status := "UNPAID"
	if d.Paid {
		status = "PAID"
	}
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Status: "+status, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("INVOICE_%d.pdf", d.DueID)
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
