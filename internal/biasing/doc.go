// Package biasing implements Compton splitting with Russian roulette.
//
// A SplittingActor is the policy the transport engine consults at every
// Compton candidate inside the volume it is attached to. When the policy
// agrees, the engine executes the actor's SplittingOperation in place of the
// ordinary Compton outcome. The operation tests the sampled photon direction
// against an acceptance cone: inside the cone the interaction is replayed F
// times at weight w/F; outside it the photon plays Russian roulette with
// survival probability 1/F at weight w*F, or is left alone when roulette is
// disabled. Every branch keeps the expected outgoing weight equal to w.
//
// Actors and operations are not safe for concurrent use; every transport
// worker owns its own pair built from a shared Configuration value.
package biasing
