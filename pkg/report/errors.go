package report

import "errors"

var (
	// ErrUnknownScope is returned when no creator exists for a scope.
	ErrUnknownScope = errors.New("report: unknown scope")

	// ErrUnsupportedFormat is returned when no renderer exists for a format.
	ErrUnsupportedFormat = errors.New("report: unsupported format")

	// ErrNotPopulated is returned when Render is called before Populate.
	ErrNotPopulated = errors.New("report: creator not populated")

	// ErrUnsupportedType is returned when a value cannot be converted to a
	// native representation, or when conversion recurses past the depth cap.
	ErrUnsupportedType = errors.New("report: unsupported type")

	// ErrSerialization wraps any failure while producing the JSON document.
	ErrSerialization = errors.New("report: serialization failed")

	// ErrNoTemplate is returned when no embedded template exists for a scope.
	ErrNoTemplate = errors.New("report: no template for scope")
)
