package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidCadence       ErrorCode = 103
	ErrCodeInvalidLength        ErrorCode = 104
	ErrCodeInvalidCostRate      ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeInvalidVersion       ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeMissingData           ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeInvalidBarSeries      ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204

	// Indicator/feature errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 302
	ErrCodeFeatureNotFound      ErrorCode = 303
	ErrCodeInvalidHorizon       ErrorCode = 304

	// Model errors (400-499)
	ErrCodeInsufficientTrainingWindow ErrorCode = 400
	ErrCodeSingularTrainingMatrix     ErrorCode = 401
	ErrCodeModelFitFailed             ErrorCode = 402
	ErrCodeVersionMismatch            ErrorCode = 404

	// Strategy errors (500-599)
	ErrCodeMisalignedSeries ErrorCode = 500

	// Backtest errors (600-699)
	ErrCodeDegenerateStatistics  ErrorCode = 600
	ErrCodeBacktestConfigError   ErrorCode = 602
	ErrCodeBacktestDataPathError ErrorCode = 603
	ErrCodeBacktestNoSymbols     ErrorCode = 604
	ErrCodeBacktestNoHorizons    ErrorCode = 605
	ErrCodeBacktestNoResultsDir  ErrorCode = 607
	ErrCodeBacktestNoDatasource  ErrorCode = 608

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 704

	// Output errors (800-899)
	ErrCodeResultWriteFailed ErrorCode = 800
	ErrCodeResultReadFailed  ErrorCode = 801
	ErrCodeCallbackFailed    ErrorCode = 802
)
