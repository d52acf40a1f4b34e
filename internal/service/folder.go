package service

import (
	"strings"
	"unicode"
)

// folderName names the external document folder of a contract, e.g.
// "12-2025-K_Jan-Kowalski".
func folderName(contractNumber, tenantName string) string {
	number := sanitizeName(contractNumber)
	tenant := sanitizeName(tenantName)
	if tenant == "" {
		return number
	}
	return number + "_" + tenant
}

// sanitizeName keeps letters, digits, '-' and '_' and folds every other run
// of characters into a single '-'.
func sanitizeName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			result = append(result, r)
		case len(result) > 0 && result[len(result)-1] == '-':
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
