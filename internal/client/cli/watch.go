package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/refresher"
)

// Watch redraws the codes every RefreshInterval until the user presses
// Enter.
func (a *App) Watch(ctx context.Context) error {
	if _, err := a.codeRows(ctx); err != nil {
		return err
	}

	interval := refresher.DefaultInterval
	if a.config != nil && a.config.RefreshInterval > 0 {
		interval = a.config.RefreshInterval
	}

	r := refresher.New(interval, func(ctx context.Context, now time.Time) {
		rows, err := a.codeRows(ctx)
		if err != nil {
			a.printf("error: %s\n", describe(err))
			return
		}
		a.printf("-- %s --\n", now.Format(time.TimeOnly))
		writeCodes(a.out, rows)
	})

	a.printf("Press Enter to stop\n")
	r.Start(ctx)
	_, _ = a.reader.ReadString('\n')
	r.Stop()
	return nil
}
