// Package storage implements NogDB's core data engine: the binary blob and
// record codecs, the class/property schema catalog, the relation/adjacency
// index, the per-class data-record store, and the MVCC transaction manager.
//
// None of these types know anything about a query language — they are the
// storage substrate the graph query API in pkg/nogdb is built on top of.
package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ClassId identifies a class (vertex or edge type) in the schema catalog.
// 0 is never a valid user class id; it is reserved as the "no class" value.
type ClassId uint16

// PropertyId identifies a property definition, scoped to the class (and its
// superclasses) that declares it.
type PropertyId uint16

// IndexId identifies a property index.
type IndexId uint32

// PositionId identifies a record's position within its class's data-record
// store. It is assigned monotonically per class and never reused, even
// after the record at that position is deleted.
type PositionId uint32

// VersionId is a monotonically increasing counter stamped on every record
// mutation and exposed as the @version pseudo-property. It is not compared
// between transactions; no write-write conflict detection is done with it.
type VersionId uint64

// TxnId identifies a transaction for diagnostic/correlation purposes.
type TxnId uint64

// ClassIDUpperLimit is the highest class id NogDB will ever hand out; the
// top of the uint16 range is withheld in case it is needed as a sentinel by
// a future on-disk format revision.
const ClassIDUpperLimit ClassId = ^ClassId(0) - 1

// Pseudo-property ids. These are never stored on disk as property values —
// they are computed at read time from the record's identity — but they
// occupy the low end of the property-id space so user-defined properties
// never collide with them.
const (
	ClassNamePropertyID PropertyId = 0
	RecordIDPropertyID  PropertyId = 1
	DepthPropertyID     PropertyId = 2
	VersionPropertyID   PropertyId = 3
)

const (
	ClassNamePseudoProperty = "@className"
	RecordIDPseudoProperty  = "@recordId"
	DepthPseudoProperty     = "@depth"
	VersionPseudoProperty   = "@version"
)

// InitNumProperties is the number of pseudo-properties reserved before any
// user property is assigned an id.
const InitNumProperties PropertyId = 4

const (
	MaxClassNameLen    = 128
	MaxPropertyNameLen = 128
)

// ClassType distinguishes vertex classes from edge classes. Edge classes
// carry an additional 12-byte source/destination prefix in their record
// blobs; vertex classes do not.
type ClassType uint8

const (
	ClassTypeVertex ClassType = iota + 1
	ClassTypeEdge
)

func (t ClassType) String() string {
	switch t {
	case ClassTypeVertex:
		return "vertex"
	case ClassTypeEdge:
		return "edge"
	default:
		return fmt.Sprintf("ClassType(%d)", t)
	}
}

// PropertyType is the scalar wire type of a property value.
type PropertyType uint8

const (
	PropertyTypeTinyInt PropertyType = iota + 1
	PropertyTypeTinyIntU
	PropertyTypeSmallInt
	PropertyTypeSmallIntU
	PropertyTypeInteger
	PropertyTypeIntegerU
	PropertyTypeBigInt
	PropertyTypeBigIntU
	PropertyTypeReal
	PropertyTypeText
	PropertyTypeBlob
)

func (t PropertyType) String() string {
	names := map[PropertyType]string{
		PropertyTypeTinyInt:   "tinyint",
		PropertyTypeTinyIntU:  "tinyint_unsigned",
		PropertyTypeSmallInt:  "smallint",
		PropertyTypeSmallIntU: "smallint_unsigned",
		PropertyTypeInteger:   "integer",
		PropertyTypeIntegerU:  "integer_unsigned",
		PropertyTypeBigInt:    "bigint",
		PropertyTypeBigIntU:   "bigint_unsigned",
		PropertyTypeReal:      "real",
		PropertyTypeText:      "text",
		PropertyTypeBlob:      "blob",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("PropertyType(%d)", t)
}

// RecordID is NogDB's handle for a single stored record: which class it
// belongs to, and its position within that class's store.
type RecordID struct {
	ClassID    ClassId
	PositionID PositionId
}

// String renders the textual "<classId>:<positionId>" form used as the map
// key inside relation-index sub-stores and as the @recordId pseudo-property
// value.
func (r RecordID) String() string {
	return strconv.FormatUint(uint64(r.ClassID), 10) + ":" + strconv.FormatUint(uint64(r.PositionID), 10)
}

// IsEmpty reports whether r is the zero value, i.e. refers to no record.
func (r RecordID) IsEmpty() bool {
	return r.ClassID == 0 && r.PositionID == 0
}

// ParseRecordID parses the "<classId>:<positionId>" textual form produced
// by RecordID.String.
func ParseRecordID(s string) (RecordID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RecordID{}, fmt.Errorf("%w: malformed record id %q", ErrInternal, s)
	}
	classID, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return RecordID{}, fmt.Errorf("%w: malformed class id in %q: %v", ErrInternal, s, err)
	}
	posID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return RecordID{}, fmt.Errorf("%w: malformed position id in %q: %v", ErrInternal, s, err)
	}
	return RecordID{ClassID: ClassId(classID), PositionID: PositionId(posID)}, nil
}

// ErrorCode categorizes an Error for programmatic handling, mirroring the
// NOGDB_CTX_* / NOGDB_GRAPH_* / NOGDB_TXN_* families of the original engine.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeNoExistProperty
	CodeDuplicateClass
	CodeDuplicateProperty
	CodeNoExistClass
	CodeNoExistVertex
	CodeNoExistEdge
	CodeNoExistIndex
	CodeInvalidClassName
	CodeInvalidPropertyName
	CodeLimitDBSchema
	CodeOverrideProperty
	CodeMismatchClassType
	CodeTxnInvalid
	CodeTxnCompleted
	CodeInternal
)

// Error is NogDB's single typed error: a numeric code plus a human message,
// implementing the standard error interface and participating in
// errors.Is/errors.As through the category sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the category sentinel matching e.Code, so
// callers can write errors.Is(err, storage.ErrNoExistClass) instead of
// comparing codes directly.
func (e *Error) Is(target error) bool {
	var code ErrorCode
	switch target {
	case ErrNoExistProperty:
		code = CodeNoExistProperty
	case ErrDuplicateClass:
		code = CodeDuplicateClass
	case ErrDuplicateProperty:
		code = CodeDuplicateProperty
	case ErrNoExistClass:
		code = CodeNoExistClass
	case ErrNoExistVertex:
		code = CodeNoExistVertex
	case ErrNoExistEdge:
		code = CodeNoExistEdge
	case ErrNoExistIndex:
		code = CodeNoExistIndex
	case ErrInvalidClassName:
		code = CodeInvalidClassName
	case ErrInvalidPropertyName:
		code = CodeInvalidPropertyName
	case ErrLimitDBSchema:
		code = CodeLimitDBSchema
	case ErrOverrideProperty:
		code = CodeOverrideProperty
	case ErrMismatchClassType:
		code = CodeMismatchClassType
	case ErrTxnInvalid:
		code = CodeTxnInvalid
	case ErrTxnCompleted:
		code = CodeTxnCompleted
	case ErrInternal:
		code = CodeInternal
	default:
		return false
	}
	return e.Code == code
}

func newErr(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Category sentinels. Each carries only a generic category message;
// errors.Is(err, storage.ErrNoExistClass) matches both an *Error with the
// corresponding Code (via Error.Is), whatever message newErr gave it, and
// an error that wraps the sentinel with %w.
var (
	ErrNoExistProperty     = errors.New("property does not exist")
	ErrDuplicateClass      = errors.New("class already exists")
	ErrDuplicateProperty   = errors.New("property already exists")
	ErrNoExistClass        = errors.New("class does not exist")
	ErrNoExistVertex       = errors.New("vertex does not exist")
	ErrNoExistEdge         = errors.New("edge does not exist")
	ErrNoExistIndex        = errors.New("index does not exist")
	ErrInvalidClassName    = errors.New("invalid class name")
	ErrInvalidPropertyName = errors.New("invalid property name")
	ErrLimitDBSchema       = errors.New("schema id space exhausted")
	ErrOverrideProperty    = errors.New("property overrides an inherited property of a different type")
	ErrMismatchClassType   = errors.New("class type does not match superclass type")
	ErrTxnInvalid          = errors.New("transaction is not valid")
	ErrTxnCompleted        = errors.New("transaction has already been committed or rolled back")
	ErrInternal            = errors.New("internal error")
)
