package clients

const (
	// -----------------------------
	// CONNECTION / CONFIG
	// -----------------------------
	ErrBackendUnavailable  = "backend_unavailable"
	ErrSignerNotConfigured = "signer_not_configured"

	// -----------------------------
	// SUBMISSION
	// -----------------------------
	ErrFeeDataUnavailable = "fee_data_unavailable"
	ErrNonceFetchFailed   = "nonce_fetch_failed"
	ErrSignFailed         = "sign_failed"
	ErrSubmitFailed       = "submit_failed"

	// -----------------------------
	// FINALITY
	// -----------------------------
	ErrFinalityTimeout = "finality_wait_timed_out"
	ErrTxFailed        = "tx_failed"

	// XRPLSuccessCode is the one engine result the native ledger reports for
	// a fully applied payment. Everything else is a rejection.
	XRPLSuccessCode = "tesSUCCESS"
)
