// multactl/output.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Ftotnem/multa-tracker/shared/api"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func printRoster(w io.Writer, snap models.RosterSnapshot) {
	if snap.Team == nil {
		fmt.Fprintln(w, "team is gone or no longer shared with you")
		return
	}
	fmt.Fprintf(w, "%s (%s)  version %d\n", snap.Team.Name, snap.Team.Color, snap.Version)
	tw := newTable(w)
	fmt.Fprintln(tw, "PLAYER\tNAME\tDUE\tTOTAL")
	var due float64
	for _, e := range snap.Players {
		due += e.AmountDue
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.PlayerID, e.Name, money(e.AmountDue), money(e.TotalMulta))
	}
	fmt.Fprintf(tw, "\t\t%s\t\n", money(due))
	tw.Flush()
}

func printPlayer(w io.Writer, p *models.Player) {
	fmt.Fprintf(w, "%s  %s\n", p.ID, p.Name)
	tw := newTable(w)
	fmt.Fprintln(tw, "TEAM\tDUE\tTOTAL")
	for _, teamID := range p.TeamIDs {
		b, ok := ledger.BalanceFor(*p, teamID)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, money(b.AmountDue), money(b.TotalMulta))
	}
	tw.Flush()
}

// explain turns an API failure into the message the service sent.
func explain(err error) error {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return errors.New(httpErr.Message)
	}
	return err
}

// readSecret reads one line from in when the secret was not passed as a flag.
func readSecret(in io.Reader, out io.Writer, prompt, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
