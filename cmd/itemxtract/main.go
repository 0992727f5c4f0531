// Package main provides the itemxtract command-line tool.
//
// itemxtract downloads 10-K and 10-Q filings from SEC EDGAR and splits
// them into per-item JSON records with a heading outline of each item.
//
// Usage:
//
//	itemxtract extract AAPL MSFT --years 2022,2023 --filing 10-K
//	itemxtract extract --jobs batch.yaml
//	itemxtract locate filing.htm
//	itemxtract outline filing.htm --item 7
//	itemxtract report <run-id> --format html
package main

func main() {
	Execute()
}
