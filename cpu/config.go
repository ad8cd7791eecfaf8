package cpu

import "fmt"

// ArchVersion enumerates the ARM architecture versions the kernel
// recognizes, oldest first so that comparisons (>=) mean "at least this
// new".
type ArchVersion int

const (
	ArchV1 ArchVersion = iota
	ArchV2
	ArchV3
	ArchV4
	ArchV4T
	ArchV5
	ArchV5T
	ArchV5TE
	ArchV5TEJ
	ArchV6
	ArchV6K
	ArchV6T2
	ArchV7
	ArchV7VE
	ArchV8
)

func (v ArchVersion) String() string {
	names := [...]string{"v1", "v2", "v3", "v4", "v4T", "v5", "v5T", "v5TE",
		"v5TEJ", "v6", "v6K", "v6T2", "v7", "v7VE", "v8"}
	if v >= 0 && int(v) < len(names) {
		return names[v]
	}
	return "?"
}

// FPVersion identifies which floating-point/SIMD unit is modeled.
type FPVersion int

const (
	FPNone FPVersion = iota
	FPA
	VFPv2
	VFPv3
	VFPv4
	VFPv8
)

// JazelleLevel is the implementation depth of the Jazelle facility,
// spec.md §4.3 step 5.
type JazelleLevel int

const (
	JazelleNone JazelleLevel = iota
	JazelleTrivial
	JazelleFull
	JazelleExtension
)

// Feature bits, or-ed into Configuration.Features.
const (
	FeatureThumb2 = 1 << iota
	FeatureThumbEE
	FeatureSecurityExt // TrustZone (A/Monitor mode, SCR)
	FeatureVirtExt     // EL2/Hyp
	FeatureMultiply
	FeatureSaturating
	FeatureMedia // packed SIMD-in-GPR ops (SADD8 etc)
	FeatureLPAE
)

// Profile distinguishes the A/R/M profile split that appears from v7
// onward; only A-profile (application) is modeled here, per spec.md's
// non-goal of MMU/real-interrupt fidelity, but the field is threaded
// through because the resolver reads it from the request.
type Profile int

const (
	ProfileA Profile = iota
	ProfileR
	ProfileM
)

// Configuration is the immutable-after-init tuple spec.md §3 names.
type Configuration struct {
	ArchVersion    ArchVersion
	Profile        Profile
	FPVersion      FPVersion
	Features       uint32
	ThumbLevel     int // 0=none, 1=Thumb, 2=Thumb-2
	JazelleLevel   JazelleLevel
	SupportedISAs  uint32 // bitmask of ISABit*
	PartNumber     uint32
	Vendor         uint32
	Lowest64OnlyEL int // lowest EL that is AArch64-only, or 0 if none
	EL2Supported   bool
	EL3Supported   bool
	DefaultISA     ISA
	Endianness     Endianness
}

// ConfigRequest is the partial, user-supplied request that Resolve turns
// into an immutable Configuration, per spec.md §4.3.
type ConfigRequest struct {
	Arch         string // "v1".."v8", "v4T", "v6T2", "v7VE", ...
	Profile      Profile
	Thumb        bool
	ThumbEE      bool
	Jazelle      bool
	JazelleExt   bool
	FP           bool
	FPVersion    FPVersion // explicit override; FPNone = "pick a default"
	ForceISA     ISA       // ISAUnknown = "use the architecture default"
	Force32Bit   bool
	SecurityExt  bool
	VirtExt      bool
	EL2Supported bool
	EL3Supported bool
	Endianness   Endianness
	PartNumber   uint32
	Vendor       uint32
}

var archByName = map[string]ArchVersion{
	"v1": ArchV1, "v2": ArchV2, "v3": ArchV3, "v4": ArchV4, "v4t": ArchV4T,
	"v5": ArchV5, "v5t": ArchV5T, "v5te": ArchV5TE, "v5tej": ArchV5TEJ,
	"v6": ArchV6, "v6k": ArchV6K, "v6t2": ArchV6T2, "v7": ArchV7,
	"v7ve": ArchV7VE, "v8": ArchV8,
}

// ResolveWarning records a rounding decision Resolve made because the
// request described an impossible combination (spec.md §4.3 "Errors").
type ResolveWarning struct {
	Message string
}

func (w ResolveWarning) Error() string { return w.Message }

// Resolve implements spec.md §4.3: it determines a default ISA, infers a
// minimum architecture version from any requested ISA, or-ins the feature
// set of the chosen version, picks a default FP version, and picks a
// Jazelle implementation level. It returns the immutable Configuration and
// any warnings about combinations it had to round up to make consistent.
func Resolve(req ConfigRequest) (*Configuration, []ResolveWarning) {
	var warnings []ResolveWarning

	version, ok := archByName[normalizeArch(req.Arch)]
	if !ok {
		version = ArchV7
		warnings = append(warnings, ResolveWarning{fmt.Sprintf("unknown architecture %q, defaulting to v7", req.Arch)})
	}

	// Step 2: infer minimum version from requested ISA.
	if req.ThumbEE && version != ArchV7 {
		if version < ArchV7 {
			warnings = append(warnings, ResolveWarning{"ThumbEE requires exactly v7, rounding up"})
		}
		version = ArchV7
	}
	if req.Jazelle && req.JazelleExt && version < ArchV7 {
		warnings = append(warnings, ResolveWarning{"Jazelle extension bytecodes require v7, rounding up"})
		version = ArchV7
	}
	if req.Thumb && version < ArchV4T {
		warnings = append(warnings, ResolveWarning{"Thumb requires at least v4T, rounding up"})
		version = ArchV4T
	}
	if req.ForceISA == ISAA64 && version < ArchV8 {
		warnings = append(warnings, ResolveWarning{"A64 requires at least v8, rounding up"})
		version = ArchV8
	}

	cfg := &Configuration{
		ArchVersion: version,
		Profile:     req.Profile,
		PartNumber:  req.PartNumber,
		Vendor:      req.Vendor,
		Endianness:  req.Endianness,
	}

	// Step 3: feature set implied by version, then explicit overrides.
	if version >= ArchV6T2 {
		cfg.Features |= FeatureThumb2
	}
	if version == ArchV7 {
		cfg.Features |= FeatureThumbEE
	}
	if version >= ArchV6 {
		cfg.Features |= FeatureMultiply | FeatureSaturating | FeatureMedia
	}
	if req.SecurityExt || version >= ArchV6K {
		cfg.Features |= FeatureSecurityExt
	}
	if req.VirtExt {
		cfg.Features |= FeatureVirtExt
	}

	cfg.EL2Supported = req.EL2Supported && version >= ArchV7VE
	cfg.EL3Supported = req.EL3Supported && cfg.Features&FeatureSecurityExt != 0

	switch {
	case version >= ArchV6T2 && req.Thumb:
		cfg.ThumbLevel = 2
	case version >= ArchV4T && req.Thumb:
		cfg.ThumbLevel = 1
	default:
		cfg.ThumbLevel = 0
	}

	// Step 1: default ISA.
	cfg.SupportedISAs = ISABitARM32
	switch {
	case version <= ArchV2:
		cfg.DefaultISA = ISAARM26
		cfg.SupportedISAs = ISABitARM26
	case version >= ArchV8 && !req.Force32Bit:
		cfg.DefaultISA = ISAA64
		cfg.SupportedISAs = ISABitA64 | ISABitARM32
	default:
		cfg.DefaultISA = ISAARM32
		cfg.SupportedISAs = ISABitARM32
	}
	if req.ForceISA != ISAUnknown {
		cfg.DefaultISA = req.ForceISA
	}
	if cfg.ThumbLevel > 0 {
		cfg.SupportedISAs |= ISABitThumb
	}
	if cfg.Features&FeatureThumbEE != 0 {
		cfg.SupportedISAs |= ISABitThumbEE
	}

	// Step 4: default FP version if FP requested but unspecified.
	if req.FP {
		if req.FPVersion != FPNone {
			cfg.FPVersion = req.FPVersion
		} else {
			switch {
			case version <= ArchV4:
				cfg.FPVersion = FPA
			case version == ArchV5 || version == ArchV5T || version == ArchV5TE || version == ArchV5TEJ || version == ArchV6 || version == ArchV6K || version == ArchV6T2:
				cfg.FPVersion = VFPv2
			case version == ArchV7:
				if cfg.EL2Supported {
					cfg.FPVersion = VFPv4
				} else {
					cfg.FPVersion = VFPv3
				}
			default:
				cfg.FPVersion = VFPv8
			}
		}
	}

	// Step 5: Jazelle implementation level.
	switch {
	case !req.Jazelle:
		cfg.JazelleLevel = JazelleNone
	case req.JazelleExt:
		cfg.JazelleLevel = JazelleExtension
	case version >= ArchV5TEJ:
		cfg.JazelleLevel = JazelleFull
	default:
		cfg.JazelleLevel = JazelleTrivial
	}
	if cfg.JazelleLevel != JazelleNone {
		cfg.SupportedISAs |= ISABitJazelle
	}

	if version >= ArchV8 && !req.Force32Bit && req.ForceISA != ISAARM32 {
		cfg.Lowest64OnlyEL = 1
	}

	return cfg, warnings
}

func normalizeArch(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
