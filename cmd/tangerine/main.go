package main

import "github.com/DovieW/tangerine-voice-sub000/internal/bootstrap"

func main() {
	bootstrap.Run()
}
