package constants

const ElectronMassEnergy float64 = 0.51099895 // [MeV]
const SpeedOfLight float64 = 299.792458       // [mm / ns]
const Quantile95 = 1.96
