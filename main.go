// Command comptsplit transports photons through a box geometry with Compton
// splitting and Russian roulette biasing.
package main

func main() {
	Execute()
}
