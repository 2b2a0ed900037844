package main

import (
	"fmt"
	"os"
)

//go:noinline
func symtestTarget(n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += i
	}
	return sum
}

func main() {
	fmt.Println(symtestTarget(len(os.Args)))
}
