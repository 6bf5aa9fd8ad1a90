package namespace

import "github.com/ceyewan/cbconf/xerrors"

var (
	ErrUnknownElement    = xerrors.New("namespace: no parser registered for element")
	ErrDuplicateParser   = xerrors.New("namespace: parser already registered")
	ErrDuplicateName     = xerrors.New("namespace: bean name already used")
	ErrMalformedDocument = xerrors.New("namespace: malformed document")
)
