package main

import (
	"fmt"
	"os"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

// hashpass imprime o hash argon2id de uma senha para cadastro manual de
// usuários direto no banco.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: hashpass <senha>")
		os.Exit(1)
	}

	if err := util.ValidatePassword(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "senha recusada: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro ao gerar hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
