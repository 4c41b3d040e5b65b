// Package approval asks the operator before attack payloads are sent to a
// host outside the allow list.
package approval

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

type Result struct {
	Approved   bool
	UserAction string
}

type Prompt struct {
	Target  string
	Attacks []string
	Reason  string
}

// Asker reads the operator's answer from In and writes the prompt to Out.
type Asker struct {
	In          io.Reader
	Out         io.Writer
	Interactive func() bool
}

// Default prompts on stderr and reads stdin.
func Default() Asker {
	return Asker{In: os.Stdin, Out: os.Stderr, Interactive: IsInteractive}
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Required reports whether target's host is missing from allowed. Hosts
// compare case-insensitively, without port.
func Required(target string, allowed []string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return false, errors.Wrapf(err, "invalid target URL %q", target)
	}
	host := u.Hostname()
	if host == "" {
		return false, errors.Errorf("target URL %q has no host", target)
	}
	for _, a := range allowed {
		if strings.EqualFold(host, strings.TrimSpace(a)) {
			return false, nil
		}
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false, nil
	}
	return true, nil
}

func (a Asker) Ask(p Prompt) Result {
	if a.Interactive == nil || !a.Interactive() {
		return Result{
			Approved:   false,
			UserAction: "auto_deny_non_interactive",
		}
	}

	w := a.Out
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║              ⚠️  APPROVAL REQUIRED                            ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Target: %s\n", p.Target)
	if p.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", p.Reason)
	}
	if len(p.Attacks) > 0 {
		fmt.Fprintf(w, "Attacks: %s\n", strings.Join(p.Attacks, ", "))
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  [a] Approve - send the attack payloads")
	fmt.Fprintln(w, "  [d] Deny - abort")
	fmt.Fprintln(w, "")

	reader := bufio.NewReader(a.In)
	for {
		fmt.Fprint(w, "Your choice [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return Result{
				Approved:   false,
				UserAction: "error_reading_input",
			}
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "yes", "y":
			return Result{
				Approved:   true,
				UserAction: "approve",
			}
		case "d", "deny", "no", "n":
			return Result{
				Approved:   false,
				UserAction: "deny",
			}
		default:
			if err != nil {
				return Result{Approved: false, UserAction: "error_reading_input"}
			}
			fmt.Fprintln(w, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}
