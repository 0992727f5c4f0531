// Package forms lists the filing types and their item catalogs.
package forms

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	TenK = "10-K"
	TenQ = "10-Q"
)

// Item is a catalog entry for one section of a filing type.
type Item struct {
	Number string
	Title  string
}

var tenK = []Item{
	{"1", "Business"},
	{"1A", "Risk Factors"},
	{"1B", "Unresolved Staff Comments"},
	{"1C", "Cybersecurity"},
	{"2", "Properties"},
	{"3", "Legal Proceedings"},
	{"4", "Mine Safety Disclosures"},
	{"5", "Market for Registrant's Common Equity, Related Stockholder Matters and Issuer Purchases of Equity Securities"},
	{"6", "[Reserved]"},
	{"7", "Management's Discussion and Analysis of Financial Condition and Results of Operations"},
	{"7A", "Quantitative and Qualitative Disclosures About Market Risk"},
	{"8", "Financial Statements and Supplementary Data"},
	{"9", "Changes in and Disagreements with Accountants on Accounting and Financial Disclosure"},
	{"9A", "Controls and Procedures"},
	{"9B", "Other Information"},
	{"9C", "Disclosure Regarding Foreign Jurisdictions that Prevent Inspections"},
	{"10", "Directors, Executive Officers and Corporate Governance"},
	{"11", "Executive Compensation"},
	{"12", "Security Ownership of Certain Beneficial Owners and Management and Related Stockholder Matters"},
	{"13", "Certain Relationships and Related Transactions, and Director Independence"},
	{"14", "Principal Accountant Fees and Services"},
	{"15", "Exhibits and Financial Statement Schedules"},
	{"16", "Form 10-K Summary"},
}

var tenQ = []Item{
	{"1", "Financial Statements"},
	{"2", "Management's Discussion and Analysis of Financial Condition and Results of Operations"},
	{"3", "Quantitative and Qualitative Disclosures About Market Risk"},
	{"4", "Controls and Procedures"},
}

// Types returns the supported filing types.
func Types() []string {
	return []string{TenK, TenQ}
}

// Supported reports whether filingType is a known filing type.
func Supported(filingType string) bool {
	return slices.Contains(Types(), Normalize(filingType))
}

// Normalize upper-cases a filing type ("10-k" -> "10-K").
func Normalize(filingType string) string {
	return strings.ToUpper(strings.TrimSpace(filingType))
}

// Items returns the item catalog for filingType, or nil.
func Items(filingType string) []Item {
	switch Normalize(filingType) {
	case TenK:
		return slices.Clone(tenK)
	case TenQ:
		return slices.Clone(tenQ)
	}
	return nil
}

// Title returns "Item N. Title" from the catalog, or "" when unknown.
func Title(filingType, number string) string {
	for _, it := range Items(filingType) {
		if it.Number == number {
			return fmt.Sprintf("Item %s. %s", it.Number, it.Title)
		}
	}
	return ""
}

// CompareIDs orders section ids by leading integer then letter suffix,
// so "1" < "1A" < "1B" < "2" < "10".
func CompareIDs(a, b string) int {
	an, as := SplitID(a)
	bn, bs := SplitID(b)
	if an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	return strings.Compare(as, bs)
}

// SplitID splits "7A" into (7, "A"). Ids without a leading number sort first.
func SplitID(id string) (int, string) {
	i := 0
	for i < len(id) && id[i] >= '0' && id[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(id[:i])
	if err != nil {
		return 0, id
	}
	return n, id[i:]
}

// NormalizeItems upper-cases requested item numbers and drops blanks.
func NormalizeItems(items []string) []string {
	var out []string
	for _, it := range items {
		it = strings.ToUpper(strings.TrimSpace(it))
		it = strings.TrimPrefix(it, "ITEM")
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
