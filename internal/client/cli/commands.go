package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

func (a *App) login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, username, string(password)); err != nil {
		fmt.Println("login failed:", err)
		return
	}
	a.userName = username
	fmt.Println("Logged in as", username)
}

// add captures a submission offline: a form id plus the response payload as
// a JSON object.
func (a *App) add(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first: local records are encrypted under your key")
		return
	}

	formID, err := GetSimpleText(a.reader, "Form id", os.Stdout)
	if err != nil || formID == "" {
		fmt.Println("form id is required")
		return
	}
	raw, err := GetSimpleText(a.reader, `Response data as JSON, e.g. {"q1": "yes"}`, os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var data models.FormData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		fmt.Println("invalid JSON:", err)
		return
	}

	rec := models.NewSubmission(formID, data)
	if _, err := a.store.SaveSubmission(ctx, rec); err != nil {
		fmt.Println("failed to save:", err)
		return
	}
	fmt.Println("Queued", rec.LocalID)
}

func (a *App) list(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}

	recs, decErrs, err := a.store.GetAllSubmissions(ctx)
	if err != nil {
		fmt.Println("failed to list:", err)
		return
	}
	for _, rec := range recs {
		fmt.Printf("%s  form=%s status=%s attempts=%d\n",
			rec.LocalID, rec.FormID, rec.Status, rec.SyncAttempts)
	}
	for _, derr := range decErrs {
		fmt.Printf("%s  <unreadable: %v>\n", derr.Key, derr.Err)
	}
	if len(recs)+len(decErrs) == 0 {
		fmt.Println("No records")
	}
}

func (a *App) sync(ctx context.Context, args []string) {
	strategy := services.StrategyServerWins
	if len(args) > 0 {
		strategy = services.ConflictStrategy(args[0])
	}
	switch strategy {
	case services.StrategyServerWins, services.StrategyClientWins,
		services.StrategyMerge, services.StrategyManual:
	default:
		fmt.Println("unknown strategy; use server_wins, client_wins, merge or manual")
		return
	}

	if err := a.engine.SyncPending(ctx, strategy); err != nil {
		fmt.Println("sync failed:", err)
		return
	}
	if n, err := a.engine.SyncMedia(ctx); err != nil {
		fmt.Println("media sync incomplete:", err)
	} else if n > 0 {
		fmt.Printf("Uploaded %d media blob(s)\n", n)
	}
}

func (a *App) conflicts() {
	queue := a.engine.ConflictQueue()
	if len(queue) == 0 {
		fmt.Println("No conflicts")
		return
	}
	for _, c := range queue {
		fmt.Printf("%s  fields in conflict: %v\n", c.Local.LocalID, c.DiffFields)
		local, _ := json.Marshal(c.Local.Data)
		server, _ := json.Marshal(c.Server.Data)
		fmt.Printf("  local:  %s\n  server: %s\n", local, server)
	}
}

func (a *App) resolve(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: resolve <local-id>")
		return
	}
	raw, err := GetSimpleText(a.reader, "Resolved data as JSON", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	var data models.FormData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		fmt.Println("invalid JSON:", err)
		return
	}
	if err := a.engine.ResolveConflictManually(ctx, args[0], data); err != nil {
		fmt.Println("resolve failed:", err)
		return
	}
	fmt.Println("Resolved", args[0])
}

func (a *App) requeue(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: requeue <local-id>")
		return
	}
	if err := a.engine.Requeue(ctx, args[0]); err != nil {
		fmt.Println("requeue failed:", err)
		return
	}
	fmt.Println("Requeued", args[0])
}

// wipe destroys the key and all local collections. Confirmation is explicit
// because unsynced records are unrecoverable afterwards.
func (a *App) wipe(ctx context.Context) {
	answer, err := GetSimpleText(a.reader,
		"This destroys the key and ALL local data, including unsynced records. Type 'yes' to continue", os.Stdout)
	if err != nil || answer != "yes" {
		fmt.Println("Cancelled")
		return
	}
	if err := a.store.SecureWipe(ctx); err != nil {
		fmt.Println("wipe failed:", err)
		return
	}
	a.userName = ""
	fmt.Println("Device wiped")
}
