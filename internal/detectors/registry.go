package detectors

// All returns the ~20 detectors (§2 C5, §4.5) in a fixed, deterministic
// order. The Analysis Engine (internal/engine) iterates this list
// unchanged; order here IS the detector order the spec requires to be
// fixed across runs.
//
// Circular Dependency and God Class run first because the Deduplicator
// & Root-Cause Analyzer (C7) treats them as root-cause candidates, so
// their findings are at the front of the previousFindings list every
// later detector receives. C7 itself runs after the whole list has
// finished, so its linking does not depend on this order.
func All() []Detector {
	return []Detector{
		DetectorFunc{DetectorName: "CircularDependencyDetector", Fn: CircularDependency},
		DetectorFunc{DetectorName: "GodClassDetector", Fn: GodClass},
		DetectorFunc{DetectorName: "DeadCodeDetector", Fn: DeadCode},
		DetectorFunc{DetectorName: "FeatureEnvyDetector", Fn: FeatureEnvy},
		DetectorFunc{DetectorName: "ShotgunSurgeryDetector", Fn: ShotgunSurgery},
		DetectorFunc{DetectorName: "MiddleManDetector", Fn: MiddleMan},
		DetectorFunc{DetectorName: "InappropriateIntimacyDetector", Fn: InappropriateIntimacy},
		DetectorFunc{DetectorName: "MessageChainDetector", Fn: MessageChain},
		DetectorFunc{DetectorName: "LongParameterListDetector", Fn: LongParameterList},
		DetectorFunc{DetectorName: "DataClumpsDetector", Fn: DataClumps},
		DetectorFunc{DetectorName: "LazyClassDetector", Fn: LazyClass},
		DetectorFunc{DetectorName: "RefusedBequestDetector", Fn: RefusedBequest},
		DetectorFunc{DetectorName: "InfluentialCodeDetector", Fn: InfluentialCode},
		DetectorFunc{DetectorName: "CoreUtilityDetector", Fn: CoreUtility},
		DetectorFunc{DetectorName: "ArchitecturalBottleneckDetector", Fn: ArchitecturalBottleneck},
		DetectorFunc{DetectorName: "DegreeCentralityDetector", Fn: DegreeCentrality},
		DetectorFunc{DetectorName: "ModuleCohesionDetector", Fn: ModuleCohesion},
		DetectorFunc{DetectorName: "AsyncAntipatternDetector", Fn: AsyncAntipattern},
		DetectorFunc{DetectorName: "GeneratorMisuseDetector", Fn: GeneratorMisuse},
		DetectorFunc{DetectorName: "TestSmellDetector", Fn: TestSmell},
		DetectorFunc{DetectorName: "TypeHintCoverageDetector", Fn: TypeHintCoverage},
	}
}
