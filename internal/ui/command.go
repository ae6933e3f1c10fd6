package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifie une commande du terminal.
type Kind int

const (
	CmdHelp Kind = iota
	CmdPlay
	CmdPause
	CmdNext
	CmdPrevious
	CmdGoto
	CmdSelect
	CmdSubmit
	CmdNextQuestion
	CmdPreviousQuestion
	CmdMode
	CmdSpeed
	CmdRestart
	CmdCopy
	CmdStatus
	CmdQuit
)

// Command est une ligne saisie, analysée.
// N : option (0-based) pour CmdSelect, segment (0-based) pour CmdGoto.
type Command struct {
	Kind Kind
	N    int
	Arg  string
}

// Help liste les commandes disponibles.
const Help = `Commandes :
  p        lire / relire le segment     x        pause
  n / b    segment suivant / précédent  g <n>    aller au segment n
  1-4      choisir une réponse          s        valider la réponse
  > / <    question suivante / préc.    m <mode> changer de mode
  v        changer de vitesse           r        recommencer la leçon
  c        copier la phrase             i        état de la session
  q        quitter                      h        cette aide`

// ParseCommand analyse une ligne saisie. Une entrée inconnue retourne CmdHelp
// et une erreur décrivant le problème.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Kind: CmdHelp}, fmt.Errorf("commande vide")
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "p", "play":
		return Command{Kind: CmdPlay}, nil
	case "x", "pause":
		return Command{Kind: CmdPause}, nil
	case "n", "next":
		return Command{Kind: CmdNext}, nil
	case "b", "back":
		return Command{Kind: CmdPrevious}, nil
	case "s", "submit":
		return Command{Kind: CmdSubmit}, nil
	case ">":
		return Command{Kind: CmdNextQuestion}, nil
	case "<":
		return Command{Kind: CmdPreviousQuestion}, nil
	case "v", "speed":
		return Command{Kind: CmdSpeed}, nil
	case "r", "restart":
		return Command{Kind: CmdRestart}, nil
	case "c", "copy":
		return Command{Kind: CmdCopy}, nil
	case "i", "info":
		return Command{Kind: CmdStatus}, nil
	case "q", "quit", "exit":
		return Command{Kind: CmdQuit}, nil
	case "h", "help", "?":
		return Command{Kind: CmdHelp}, nil
	case "1", "2", "3", "4":
		n, _ := strconv.Atoi(name)
		return Command{Kind: CmdSelect, N: n - 1}, nil
	case "m", "mode":
		if len(args) != 1 {
			return Command{Kind: CmdHelp}, fmt.Errorf("usage : m <mode>")
		}
		return Command{Kind: CmdMode, Arg: args[0]}, nil
	case "g", "goto":
		if len(args) != 1 {
			return Command{Kind: CmdHelp}, fmt.Errorf("usage : g <numéro de segment>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{Kind: CmdHelp}, fmt.Errorf("numéro de segment invalide : %q", args[0])
		}
		return Command{Kind: CmdGoto, N: n - 1}, nil
	}
	return Command{Kind: CmdHelp}, fmt.Errorf("commande inconnue : %q", name)
}
