package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/client/engine"
	"github.com/dmitrijs2005/finsync/internal/client/managers"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNoBackups        = errors.New("backups are not configured")
)

func (a *App) credentials(confirm bool) (string, []byte, error) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return "", nil, err
	}
	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return "", nil, err
	}
	if confirm {
		again, err := GetPassword(a.out, "Repeat password")
		if err != nil {
			common.WipeByteArray(pw)
			return "", nil, err
		}
		defer common.WipeByteArray(again)
		if !bytes.Equal(pw, again) {
			common.WipeByteArray(pw)
			return "", nil, ErrPasswordMismatch
		}
	}
	return email, pw, nil
}

func (a *App) Register(ctx context.Context) error {
	email, pw, err := a.credentials(true)
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(pw)

	u, err := a.account.SignUp(ctx, email, pw)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Registered and signed in as %s\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, pw, err := a.credentials(false)
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(pw)

	u, err := a.account.SignIn(ctx, email, pw)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Signed in as %s\n", u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.account.SignOut(ctx)
	a.printf("Signed out\n")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	info, err := a.engine.Info(ctx)
	if err != nil {
		return a.fail(err)
	}
	if u := a.account.CurrentUser(); u != nil {
		a.printf("Account:  %s\n", u.Email)
	} else {
		a.printf("Account:  not signed in\n")
	}
	a.printf("Sync:     %s\n", info.Status)
	if !info.LastSync.IsZero() {
		a.printf("Last:     %s\n", info.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	a.printf("Pending:  %d deletion(s)\n", info.Pending)
	if info.LastError != "" {
		a.printf("Error:    %s\n", info.LastError)
	}
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if err := a.engine.SyncNow(ctx); err != nil {
		return a.fail(err)
	}
	a.printf("Sync complete\n")
	return nil
}

func (a *App) Pull(ctx context.Context, force bool) error {
	err := a.engine.ForceReplaceFromCloud(ctx, engine.ForceOptions{SkipEmptyCheck: force})
	if errors.Is(err, engine.ErrRemoteEmpty) {
		a.printf("The server holds no data; run 'pull force' to clear this device anyway\n")
		return err
	}
	if err != nil {
		return a.fail(err)
	}
	a.printf("Local data replaced from server\n")
	return nil
}

func (a *App) Push(ctx context.Context) error {
	if err := a.engine.ForceUploadToCloud(ctx, engine.ForceOptions{}); err != nil {
		return a.fail(err)
	}
	a.printf("Server data replaced from this device\n")
	return nil
}

func (a *App) Profiles(ctx context.Context) error {
	snap := a.state.Snapshot()
	active := snap.ActiveProfileID()
	for _, p := range snap.Profiles {
		mark := " "
		if p.ID() == active {
			mark = "*"
		}
		lock := ""
		if b, _ := p["isLocked"].(bool); b {
			lock = " (locked)"
		}
		a.printf("%s %s  %s %s%s\n", mark, p.ID(), p.String("name"), p.String("currency"), lock)
	}
	return nil
}

func (a *App) Use(ctx context.Context, id string) error {
	err := a.managers.Profiles.Switch(ctx, id, "")
	if errors.Is(err, managers.ErrProfileLocked) {
		pin, perr := GetPassword(a.out, "PIN")
		if perr != nil {
			return a.fail(perr)
		}
		err = a.managers.Profiles.Switch(ctx, id, string(pin))
		common.WipeByteArray(pin)
	}
	if err != nil {
		return a.fail(err)
	}
	a.printf("Active profile: %s\n", a.state.Snapshot().ActiveProfile.String("name"))
	return nil
}

func (a *App) List(ctx context.Context, collection string) error {
	if collection == "" {
		collection = string(models.Transactions)
	}
	c, err := models.ParseCollection(collection)
	if err != nil {
		return a.fail(err)
	}
	recs := a.state.Snapshot().Collection(c)
	if len(recs) == 0 {
		a.printf("No %s\n", c)
		return nil
	}
	for _, r := range recs {
		a.printf("%s  %s\n", r.ID(), describe(c, r))
	}
	return nil
}

// describe renders the interesting fields of a record on one line.
func describe(c models.Collection, r models.Record) string {
	switch c {
	case models.Transactions:
		return fmt.Sprintf("%s %-7s %10s  %s", r.String("date"), r.String("type"), r.Decimal("amount").StringFixed(2), r.String("description"))
	case models.Categories:
		return fmt.Sprintf("%-7s %s", r.String("type"), r.String("name"))
	case models.Debts:
		state := "open"
		if b, _ := r["isPaid"].(bool); b {
			state = "paid"
		}
		return fmt.Sprintf("%-8s %s %s/%s %s", r.String("type"), r.String("person"),
			r.Decimal("remainingAmount").StringFixed(2), r.Decimal("amount").StringFixed(2), state)
	case models.Investments:
		return fmt.Sprintf("%s x%s @ %s", r.String("name"), r.Decimal("quantity").String(), r.Decimal("currentPrice").StringFixed(2))
	case models.Bills:
		state := "due " + r.String("dueDate")
		if b, _ := r["isPaid"].(bool); b {
			state = "paid " + r.String("paidDate")
		}
		return fmt.Sprintf("%s %s %s (%s)", r.String("name"), r.Decimal("amount").StringFixed(2), state, r.String("frequency"))
	case models.Notes:
		pin := ""
		if b, _ := r["isPinned"].(bool); b {
			pin = "[pinned] "
		}
		return pin + r.String("title")
	case models.Profiles:
		return r.String("name") + " " + r.String("currency")
	}
	return ""
}

func (a *App) Delete(ctx context.Context, collection, id string) error {
	c, err := models.ParseCollection(collection)
	if err != nil {
		return a.fail(err)
	}
	m := a.managers
	switch c {
	case models.Profiles:
		err = m.Profiles.Delete(ctx, id)
	case models.Transactions:
		err = m.Transactions.Delete(ctx, id)
	case models.Categories:
		err = m.Categories.Delete(ctx, id)
	case models.Debts:
		err = m.Debts.Delete(ctx, id)
	case models.Investments:
		err = m.Investments.Delete(ctx, id)
	case models.Bills:
		err = m.Bills.Delete(ctx, id)
	case models.Notes:
		err = m.Notes.Delete(ctx, id)
	}
	if err != nil {
		return a.fail(err)
	}
	a.printf("Deleted %s\n", models.DeletionKey(c, id))
	return nil
}

func (a *App) Pay(ctx context.Context, kind, id string) error {
	switch kind {
	case "bill":
		_, next, err := a.managers.Bills.MarkPaid(ctx, id)
		if err != nil {
			return a.fail(err)
		}
		if next != nil {
			a.printf("Paid. Next due %s\n", next.DueDate)
		} else {
			a.printf("Paid\n")
		}
		return nil
	case "debt":
		amount, err := a.readDecimal("Payment amount")
		if err != nil {
			return a.fail(err)
		}
		d, err := a.managers.Debts.AddPayment(ctx, id, amount, "")
		if err != nil {
			return a.fail(err)
		}
		a.printf("Remaining %s\n", d.RemainingAmount.StringFixed(2))
		return nil
	}
	return a.fail(fmt.Errorf("%w: cannot pay %q", common.ErrorInvalidArgument, kind))
}

func (a *App) Undo(ctx context.Context) error {
	if err := a.managers.Transactions.Undo(ctx); err != nil {
		return a.fail(err)
	}
	a.printf("Undone\n")
	return nil
}

func (a *App) Redo(ctx context.Context) error {
	if err := a.managers.Transactions.Redo(ctx); err != nil {
		return a.fail(err)
	}
	a.printf("Redone\n")
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	if a.backups == nil {
		return a.fail(ErrNoBackups)
	}
	pass, err := GetPassword(a.out, "Backup passphrase")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(pass)

	key, err := a.backups.Upload(ctx, pass)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Backup stored as %s\n", key)
	return nil
}

func (a *App) Restore(ctx context.Context, key string) error {
	if a.backups == nil {
		return a.fail(ErrNoBackups)
	}
	pass, err := GetPassword(a.out, "Backup passphrase")
	if err != nil {
		return a.fail(err)
	}
	defer common.WipeByteArray(pass)

	n, err := a.backups.Download(ctx, key, pass)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Restored %d record(s)\n", n)
	return nil
}
