// Package services carries the billing side effects that run after
// resource persistence: invoice numbering, payment collection through
// the gateway, and SMS reminders.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"billing/internal/domain"
	"billing/internal/domain/models"
	"billing/internal/gateway"
	"billing/internal/notify"
	"billing/internal/resource"
	"billing/internal/tasks"
	"billing/internal/utils"
)

// reminderLead is how far before the due date the first reminder goes out.
const reminderLead = 72 * time.Hour

// DueService reacts to committed due rows. Every step here is
// best-effort: the due is already persisted, so failures are logged and
// swallowed rather than surfaced to the request.
type DueService struct {
	DB        *sql.DB
	Tasks     *tasks.Runner
	Gateway   *gateway.Client
	SMS       *notify.SMSClient
	Shortener *notify.Shortener
}

// AfterDuesSaved assigns invoice numbers, normalizes fixed dues, and
// schedules collection plus reminders. It satisfies resource.AfterSaveFunc.
func (s DueService) AfterDuesSaved(ctx context.Context, caller domain.Caller, recs []resource.Record) error {
	for _, rec := range recs {
		dueID := rec.Int64("id")
		if dueID <= 0 {
			continue
		}

		if err := s.assignInvoiceNum(ctx, rec); err != nil {
			utils.LogEvent("", "dues", "invoice_num",
				fmt.Sprintf("due_id=%d error=%v", dueID, err))
		}

		// fixed dues are payable immediately; the date only matters
		// for subscriptions
		if rec.String("transaction_type") == models.TransactionFixed && rec.Has("due_date") {
			if _, err := s.DB.ExecContext(ctx,
				"UPDATE dues SET due_date = NULL WHERE id = ?", dueID); err != nil {
				utils.LogEvent("", "dues", "clear_due_date",
					fmt.Sprintf("due_id=%d error=%v", dueID, err))
			} else {
				rec["due_date"] = nil
			}
		}

		s.scheduleCollection(rec)
	}
	return nil
}

// assignInvoiceNum bumps the creator's running counter and stamps it on
// the due. The bump and the read share one transaction; the row lock
// held by the UPDATE keeps two concurrent hooks from reading the same
// counter value.
func (s DueService) assignInvoiceNum(ctx context.Context, rec resource.Record) error {
	creatorID := rec.Int64("creator_id")
	if creatorID <= 0 {
		return fmt.Errorf("due %d has no creator", rec.Int64("id"))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET counter = counter + 1 WHERE id = ?", creatorID); err != nil {
		tx.Rollback()
		return err
	}

	var counter int64
	if err := tx.QueryRowContext(ctx,
		"SELECT counter FROM users WHERE id = ?", creatorID).Scan(&counter); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE dues SET invoice_num = ? WHERE id = ?", counter, rec.Int64("id")); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	rec["invoice_num"] = counter
	return nil
}

func (s DueService) scheduleCollection(rec resource.Record) {
	dueID := rec.Int64("id")
	clone := rec.Clone()

	s.Tasks.Enqueue(fmt.Sprintf("collect-payment-%d", dueID), time.Now(), func(ctx context.Context) error {
		return s.collectPayment(ctx, clone)
	})

	if clone.String("transaction_type") != models.TransactionSubscription {
		return
	}
	dueDate, ok := parseDueDate(clone.String("due_date"))
	if !ok {
		return
	}
	s.Tasks.Enqueue(fmt.Sprintf("remind-early-%d", dueID), dueDate.Add(-reminderLead), func(ctx context.Context) error {
		return s.sendReminder(ctx, dueID, "is due in 3 days")
	})
	s.Tasks.Enqueue(fmt.Sprintf("remind-final-%d", dueID), dueDate, func(ctx context.Context) error {
		return s.sendReminder(ctx, dueID, "is due today")
	})
}

// collectPayment ensures the customer exists at the gateway, raises the
// charge (invoice for fixed, plan+subscription for recurring), stores
// the gateway reference, and texts the payment link.
func (s DueService) collectPayment(ctx context.Context, rec resource.Record) error {
	dueID := rec.Int64("id")
	customer, err := s.loadUser(ctx, rec.Int64("customer_id"))
	if err != nil {
		return err
	}

	gwCustomerID, err := s.ensureGatewayCustomer(ctx, customer)
	if err != nil {
		return err
	}

	amountPaise := int64(rec.Float64("amount") * 100)
	description := fmt.Sprintf("%s (invoice #%d)", rec.String("name"), rec.Int64("invoice_num"))

	var payURL, gatewayRef string
	switch rec.String("transaction_type") {
	case models.TransactionSubscription:
		plan, err := s.Gateway.CreatePlan(ctx, rec.String("name"), amountPaise, 1)
		if err != nil {
			return err
		}
		months := int(rec.Int64("months"))
		if months <= 0 {
			months = 12
		}
		startAt := time.Now()
		if d, ok := parseDueDate(rec.String("due_date")); ok && d.After(startAt) {
			startAt = d
		}
		sub, err := s.Gateway.CreateSubscription(ctx, plan.ID, gwCustomerID, months, startAt)
		if err != nil {
			return err
		}
		payURL, gatewayRef = sub.ShortURL, sub.ID
	default:
		inv, err := s.Gateway.CreateInvoice(ctx, gwCustomerID, description, amountPaise)
		if err != nil {
			return err
		}
		payURL, gatewayRef = inv.ShortURL, inv.ID
	}

	if _, err := s.DB.ExecContext(ctx,
		"UPDATE dues SET gateway_ref = ? WHERE id = ?", gatewayRef, dueID); err != nil {
		return err
	}

	if payURL != "" && customer.mobile != "" {
		link, err := s.Shortener.Shorten(ctx, payURL)
		if err != nil {
			utils.LogEvent("", "dues", "shorten",
				fmt.Sprintf("due_id=%d error=%v", dueID, err))
		}
		msg := fmt.Sprintf("Hi %s, %s. Pay here: %s", customer.name, description, link)
		if err := s.SMS.Send(ctx, msg, []string{customer.mobile}); err != nil {
			utils.LogEvent("", "dues", "sms",
				fmt.Sprintf("due_id=%d error=%v", dueID, err))
		}
	}
	return nil
}

// sendReminder texts the customer for a subscription due that is still
// open at reminder time.
func (s DueService) sendReminder(ctx context.Context, dueID int64, when string) error {
	var (
		name      string
		amount    float64
		cancelled bool
		mobile    sql.NullString
		custName  sql.NullString
		paid      int
	)
	err := s.DB.QueryRowContext(ctx, `
        SELECT d.name, d.amount, d.is_cancelled, u.mobile_number, u.first_name,
               (SELECT COUNT(*) FROM payments WHERE payments.due_id = d.id)
        FROM dues d JOIN users u ON u.id = d.customer_id
        WHERE d.id = ?`, dueID).
		Scan(&name, &amount, &cancelled, &mobile, &custName, &paid)
	if err != nil {
		return err
	}
	if cancelled || paid > 0 || !mobile.Valid || mobile.String == "" {
		return nil
	}

	msg := fmt.Sprintf("Hi %s, your payment of %.2f for %s %s.",
		custName.String, amount, name, when)
	return s.SMS.Send(ctx, msg, []string{mobile.String})
}

type userContact struct {
	id        int64
	name      string
	email     string
	mobile    string
	gatewayID string
}

func (s DueService) loadUser(ctx context.Context, id int64) (userContact, error) {
	var (
		out       userContact
		email     sql.NullString
		gatewayID sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
        SELECT id, first_name, email, mobile_number, gateway_customer_id
        FROM users WHERE id = ?`, id).
		Scan(&out.id, &out.name, &email, &out.mobile, &gatewayID)
	if err != nil {
		return out, err
	}
	out.email = email.String
	out.gatewayID = gatewayID.String
	return out, nil
}

// ensureGatewayCustomer returns the provider-side customer id, creating
// and persisting it on first use.
func (s DueService) ensureGatewayCustomer(ctx context.Context, u userContact) (string, error) {
	if u.gatewayID != "" {
		return u.gatewayID, nil
	}
	created, err := s.Gateway.CreateCustomer(ctx, u.name, u.email, u.mobile)
	if err != nil {
		return "", err
	}
	if _, err := s.DB.ExecContext(ctx,
		"UPDATE users SET gateway_customer_id = ? WHERE id = ?", created.ID, u.id); err != nil {
		return "", err
	}
	return created.ID, nil
}

func parseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000Z", time.RFC3339,
		"2006-01-02 15:04:05", "2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
