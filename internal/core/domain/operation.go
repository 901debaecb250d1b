// internal/core/domain/operation.go
package domain

// Operation names a remote call for error classification and logging.
type Operation string

const (
	OpList        Operation = "list"
	OpSearch      Operation = "search"
	OpCreate      Operation = "create"
	OpUpdate      Operation = "update"
	OpRemove      Operation = "remove"
	OpPurchase    Operation = "purchase"
	OpRestock     Operation = "restock"
	OpLogin       Operation = "login"
	OpRegister    Operation = "register"
	OpUploadImage Operation = "upload_image"
)

// FallbackMessage is shown when the service gives no detail.
func (op Operation) FallbackMessage() string {
	switch op {
	case OpList:
		return "Failed to load sweets"
	case OpSearch:
		return "Search failed"
	case OpCreate, OpUpdate:
		return "Save failed"
	case OpRemove:
		return "Delete failed"
	case OpPurchase:
		return "Purchase failed"
	case OpRestock:
		return "Restock failed"
	case OpLogin:
		return "Unable to login"
	case OpRegister:
		return "Unable to register"
	case OpUploadImage:
		return "Image upload failed"
	default:
		return "Request failed"
	}
}

// Mutating reports whether the operation changes catalog state.
func (op Operation) Mutating() bool {
	switch op {
	case OpCreate, OpUpdate, OpRemove, OpPurchase, OpRestock:
		return true
	}
	return false
}
