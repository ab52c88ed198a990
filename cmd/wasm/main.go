//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/digisign/certsign/signer"
	"github.com/digisign/certsign/verify"
	"github.com/digisign/certsign/wasm"
)

var (
	service  = signer.New(signer.DefaultConfig(), nil, nil)
	verifier = verify.NewService(service, nil)
)

func main() {
	c := make(chan struct{})

	js.Global().Set("generateKeyPair", js.FuncOf(generateKeyPair))
	js.Global().Set("createSignableData", js.FuncOf(createSignableData))
	js.Global().Set("signData", js.FuncOf(signData))
	js.Global().Set("verifySignature", js.FuncOf(verifySignature))
	js.Global().Set("generateQRValue", js.FuncOf(generateQRValue))
	js.Global().Set("scanQRValue", js.FuncOf(scanQRValue))

	println("certsign WASM loaded")

	<-c
}

// generateKeyPair(algorithm) resolves with {"privateKey","publicKey"} JSON.
func generateKeyPair(this js.Value, args []js.Value) interface{} {
	return wasm.Promise(func() (interface{}, error) {
		in, err := wasm.StringArgs(args, "algorithm")
		if err != nil {
			return nil, err
		}
		kp, err := service.GenerateKeyPair(in[0])
		if err != nil {
			return nil, err
		}
		return wasm.EncodeResult(kp)
	})
}

// createSignableData(metadataJSON) resolves with the canonical payload.
func createSignableData(this js.Value, args []js.Value) interface{} {
	return wasm.Promise(func() (interface{}, error) {
		in, err := wasm.StringArgs(args, "metadata")
		if err != nil {
			return nil, err
		}
		m, err := wasm.DecodeMetadata(in[0])
		if err != nil {
			return nil, err
		}
		return service.CreateSignableData(m)
	})
}

// signData(data, privateKey, algorithm) resolves with the signature JSON.
func signData(this js.Value, args []js.Value) interface{} {
	return wasm.Promise(func() (interface{}, error) {
		in, err := wasm.StringArgs(args, "data", "privateKey", "algorithm")
		if err != nil {
			return nil, err
		}
		return service.SignData(in[0], in[1], in[2])
	})
}

// verifySignature(data, signature, publicKey, algorithm) returns a boolean.
func verifySignature(this js.Value, args []js.Value) interface{} {
	in, err := wasm.StringArgs(args, "data", "signature", "publicKey", "algorithm")
	if err != nil {
		return false
	}
	return service.VerifySignature(in[0], in[1], in[2], in[3])
}

// generateQRValue(metadataJSON, keyPairJSON, algorithm, origin) resolves with
// the verification URL.
func generateQRValue(this js.Value, args []js.Value) interface{} {
	return wasm.Promise(func() (interface{}, error) {
		in, err := wasm.StringArgs(args, "metadata", "keyPair", "algorithm", "origin")
		if err != nil {
			return nil, err
		}
		m, err := wasm.DecodeMetadata(in[0])
		if err != nil {
			return nil, err
		}
		kp, err := wasm.DecodeKeyPair(in[1])
		if err != nil {
			return nil, err
		}
		return service.GenerateQRValue(m, kp, in[2], in[3])
	})
}

// scanQRValue(value) resolves with the verification result JSON.
func scanQRValue(this js.Value, args []js.Value) interface{} {
	return wasm.Promise(func() (interface{}, error) {
		in, err := wasm.StringArgs(args, "value")
		if err != nil {
			return nil, err
		}
		result, err := verifier.VerifyQR(context.Background(), in[0])
		if err != nil {
			return nil, err
		}
		return wasm.EncodeResult(result)
	})
}
