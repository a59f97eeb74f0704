package utils

// ResponseCode application response code
type ResponseCode int

// Response codes. 1xxx parameter, 2xxx account, 3xxx product/stock,
// 4xxx order/payment, 5xxx system.
const (
	CodeSuccess ResponseCode = 0

	CodeInvalidParam ResponseCode = 1001

	CodeProfileNotFound    ResponseCode = 2001
	CodeProfileNotApproved ResponseCode = 2002

	CodeProductNotFound    ResponseCode = 3001
	CodeProductNotApproved ResponseCode = 3002
	CodeInsufficientStock  ResponseCode = 3003

	CodeOrderNotFound       ResponseCode = 4001
	CodeIllegalTransition   ResponseCode = 4002
	CodeTransactionNotFound ResponseCode = 4003
	CodeAmountExceedsTotal  ResponseCode = 4004
	CodeOrderNotCancellable ResponseCode = 4005

	CodeInternalError       ResponseCode = 5000
	CodeDatabaseError       ResponseCode = 5001
	CodeConstraintViolation ResponseCode = 5002
	CodeRateLimit           ResponseCode = 5003
)
