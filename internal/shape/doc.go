// Package shape defines the closed set of cloud shapes and the stochastic
// generator that fills a particle target buffer for one of them.
//
//   - [Kind]: Sphere, Heart, Flower, Saturn, Fireworks
//   - [Generator]: samples a fresh target point for every particle
//
// # Example
//
//	gen := shape.NewGenerator(rand.New(rand.NewSource(42)))
//	gen.Generate(shape.Saturn, buf.Targets)
//
// Generation is reproducible only in distribution. Two generators seeded
// identically produce identical buffers, which is what the tests rely on.
package shape
