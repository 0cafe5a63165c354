// backend/src/signatures/signatures.go

// Package signatures holds the declarative per-(bank, account) description of
// a raw bank export: which file extension it uses, how many rows to skip
// before the header, the declared date format, and how each standard column
// is derived from the source columns. Signatures are data, not code: a new
// institution is onboarded by adding a signature, not by writing a parser.
package signatures

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Signature describes the raw files of one (bank, account).
type Signature struct {
	Bank      string `yaml:"bank"`
	Account   string `yaml:"account"`
	Extension string `yaml:"extension"`
	SkipRows  int    `yaml:"skiprows"`
	// DateFormat is a strftime-style format (e.g. "%d/%m/%Y"). Empty means
	// best-effort parsing.
	DateFormat string `yaml:"date_format"`
	// ColumnsMapping maps each standard column to a source column alias, a
	// template interpolating source columns ("{Memo1} {Memo2}"), or a
	// literal constant.
	ColumnsMapping map[string]string `yaml:"columns_mapping"`
}

// DateLayout returns the signature's date format as a Go time layout, or ""
// when no format is declared.
func (s Signature) DateLayout() string {
	return strftimeToLayout(s.DateFormat)
}

type signatureFile struct {
	Signatures []Signature `yaml:"signatures"`
}

// Registry is the loaded set of signatures.
type Registry struct {
	signatures []Signature
}

// ErrNotFound is wrapped by Signature lookups for unregistered accounts.
var ErrNotFound = fmt.Errorf("no file signature registered")

// Load reads the signature definitions from a YAML file. A missing file
// yields an empty registry; every lookup will then fail per account, which
// skips that account's files rather than aborting ingestion.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file signatureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &Registry{signatures: file.Signatures}, nil
}

// NewRegistry builds a registry from in-memory signatures (used by tests).
func NewRegistry(signatures ...Signature) *Registry {
	return &Registry{signatures: signatures}
}

// Signature finds the definition for a bank and account.
func (r *Registry) Signature(bank, account string) (Signature, error) {
	for _, s := range r.signatures {
		if s.Bank == bank && s.Account == account {
			return s, nil
		}
	}
	return Signature{}, fmt.Errorf("%w for %s - %s", ErrNotFound, bank, account)
}

// strftime directives that appear in signature files, mapped to Go layout
// fragments.
var strftimeReplacer = strings.NewReplacer(
	"%d", "02",
	"%m", "01",
	"%Y", "2006",
	"%y", "06",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%b", "Jan",
	"%B", "January",
)

func strftimeToLayout(format string) string {
	if format == "" {
		return ""
	}
	return strftimeReplacer.Replace(format)
}
