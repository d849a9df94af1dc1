package fixapply

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

// GenerateDiffPreview renders a colorized, line-by-line unified diff of
// codeBefore against codeAfter for display before a fix is applied.
func GenerateDiffPreview(codeBefore, codeAfter string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(codeBefore),
		B:        difflib.SplitLines(codeAfter),
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	}
	raw, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("fixapply: generate diff: %w", err)
	}

	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			b.WriteString(line)
		case strings.HasPrefix(line, "+"):
			b.WriteString(addedColor.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(removedColor.Sprint(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// suspiciousFixSize flags a fix whose codeBefore is large enough that a
// fuzzy match risks touching much more of the file than intended.
const suspiciousFixSize = 1000

// ValidateFix reports before-apply diagnostics for one proposed fix: a
// missing file, a codeBefore that can only be located via fuzzy match (not
// verbatim), and a suspiciously large codeBefore. It returns one message
// per concern found; an empty slice means no concerns.
func ValidateFix(path, codeBefore string) []string {
	var diagnostics []string

	data, err := os.ReadFile(path)
	if err != nil {
		diagnostics = append(diagnostics, fmt.Sprintf("file does not exist or is unreadable: %s", path))
		return diagnostics
	}
	content := string(data)

	if len(codeBefore) > suspiciousFixSize {
		diagnostics = append(diagnostics, fmt.Sprintf("codeBefore is %d characters; fixes this large are error-prone to match precisely", len(codeBefore)))
	}

	if !strings.Contains(content, codeBefore) {
		if strings.Contains(normalizeForCompare(content), normalizeForCompare(codeBefore)) {
			diagnostics = append(diagnostics, "codeBefore is only available via fuzzy match, not verbatim")
		} else {
			diagnostics = append(diagnostics, "codeBefore was not found in the file, even under normalization")
		}
	}

	return diagnostics
}

// CreateBackup copies path to a sibling "<path>.bak.<unix-nano>" file and
// returns its path.
func CreateBackup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fixapply: read %s for backup: %w", path, err)
	}
	backupPath := fmt.Sprintf("%s.bak.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("fixapply: write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// RestoreBackup copies backupPath's content back over originalPath.
func RestoreBackup(backupPath, originalPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("fixapply: read backup %s: %w", backupPath, err)
	}
	if err := os.WriteFile(originalPath, data, 0o644); err != nil {
		return fmt.Errorf("fixapply: restore %s: %w", originalPath, err)
	}
	return nil
}
