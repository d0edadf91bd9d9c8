package credentials

import "testing"

// TerminalPrompter reads from the controlling terminal (os.Stdin, term.ReadPassword
// against the terminal fd), so there is nothing useful to assert on in an
// automated unit test beyond the interface satisfaction checked here; the
// prompting behaviour itself is exercised indirectly through Ensure's tests
// above via fakePrompter.
var _ Prompter = TerminalPrompter{}

func TestTerminalPrompterSatisfiesPrompter(t *testing.T) {
	var p Prompter = TerminalPrompter{}
	if p == nil {
		t.Fatal("TerminalPrompter should satisfy Prompter")
	}
}
