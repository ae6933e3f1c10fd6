package lesson

import "time"

// Scheduler programme les transitions différées (affichage du feedback,
// avance automatique). La fonction retournée annule le rappel s'il n'a pas
// encore été exécuté.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// TimerScheduler s'appuie sur time.AfterFunc ; fn s'exécute dans sa propre goroutine.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
