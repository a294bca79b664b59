package loop

func count() int {
	i := 0
	for i < 10 {
		i++
	}
	return i
}
