package speckle_test

import (
	"fmt"

	"github.com/cwbudde/algo-speckle/dls/speckle"
)

func ExampleNew() {
	s, err := speckle.New([]float64{1, 2, 1, 2})
	if err != nil {
		panic(err)
	}

	fmt.Printf("avg=%.2f\n", s.TimeAverage())
	for _, v := range s.IAKF() {
		fmt.Printf("%.4f ", v)
	}
	fmt.Println()
	// Output:
	// avg=1.50
	// 1.1111 0.8889 1.1111 0.8889
}

func ExampleEnsemble_Extremes() {
	var members []*speckle.Speckle
	for _, tr := range [][]float64{{1, 2, 1, 2}, {2, 2, 2, 2}, {3, 1, 3, 1}, {5, 6, 5, 6}} {
		s, err := speckle.New(tr)
		if err != nil {
			panic(err)
		}
		members = append(members, s)
	}
	e := speckle.NewEnsemble(members...)

	bright, err := e.Extremes(0.25, 0, speckle.SideBest, speckle.ByTimeAverage)
	if err != nil {
		panic(err)
	}
	fmt.Println(bright.Len(), bright.Speckles()[0].TimeAverage())
	// Output:
	// 1 5.5
}

func ExampleEnsemble_Update() {
	a, _ := speckle.New([]float64{1, 2, 1})
	b, _ := speckle.New([]float64{2, 1, 2})
	e := speckle.NewEnsemble(a, b)
	if err := e.Update(); err != nil {
		panic(err)
	}

	iakf, _ := e.IAKF()
	fakf, _ := e.FAKF()
	for k := range iakf {
		fmt.Printf("lag %d: IAKF=%.4f FAKF=%.4f\n", k, iakf[k], fakf[k])
	}
	// Output:
	// lag 0: IAKF=1.1111 FAKF=1.0000
	// lag 1: IAKF=0.8889 FAKF=1.0000
	// lag 2: IAKF=1.1111 FAKF=1.0000
}
