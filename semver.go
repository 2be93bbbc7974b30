package gitversion

import (
	"strconv"
	"strings"
)

// Version is a major.minor.patch triple with an optional qualifier suffix.
// Values are immutable; every transformation returns a new Version.
type Version struct {
	Major     uint64
	Minor     uint64
	Patch     uint64
	Qualifier string
}

// ParseVersion parses the "major.minor.patch[-qualifier]" form. The qualifier
// is everything after the first "-".
func ParseVersion(text string) (Version, error) {
	core, qualifier, _ := strings.Cut(text, "-")

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, &ParseError{Input: text, Reason: "expected exactly three numeric components"}
	}

	var nums [3]uint64
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return Version{}, &ParseError{Input: text, Reason: "non-numeric component " + strconv.Quote(part)}
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: text, Reason: err.Error()}
		}
		nums[i] = n
	}

	return Version{
		Major:     nums[0],
		Minor:     nums[1],
		Patch:     nums[2],
		Qualifier: qualifier,
	}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(text string) Version {
	v, err := ParseVersion(text)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Qualifier != "" {
		b.WriteByte('-')
		b.WriteString(v.Qualifier)
	}
	return b.String()
}

// BumpMajor increments major and resets minor, patch and qualifier.
func (v Version) BumpMajor() Version {
	return Version{Major: v.Major + 1}
}

// BumpMinor increments minor and resets patch and qualifier.
func (v Version) BumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// BumpPatch increments patch and clears the qualifier.
func (v Version) BumpPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// WithQualifier returns v with its qualifier replaced.
func (v Version) WithQualifier(qualifier string) Version {
	v.Qualifier = qualifier
	return v
}

// Release returns v without its qualifier.
func (v Version) Release() Version {
	return v.WithQualifier("")
}
