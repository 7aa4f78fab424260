package parser

import "uiflow/internal/domain"

// Parser turns scenario results into failure records
type Parser interface {
	ParseFailure(result domain.TestResult) []domain.TestFailure
	ParseStepCounts(result domain.TestResult) (passed, failed int)
}
