package main

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/keystore"
	"github.com/LdDl/gocms/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "sign":
		err = runSign(args)
	case "verify":
		err = runVerify(args)
	case "envelope":
		err = runEnvelope(args)
	case "open":
		err = runOpen(args)
	case "encrypt-data":
		err = runEncryptData(args)
	case "decrypt-data":
		err = runDecryptData(args)
	case "compress":
		err = runCompress(args)
	case "decompress":
		err = runDecompress(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  sign          sign content into a SignedData envelope\n")
	fmt.Fprintf(os.Stderr, "  verify        verify a SignedData envelope\n")
	fmt.Fprintf(os.Stderr, "  envelope      encrypt content into an EnvelopedData envelope\n")
	fmt.Fprintf(os.Stderr, "  open          decrypt an EnvelopedData envelope\n")
	fmt.Fprintf(os.Stderr, "  encrypt-data  symmetric-encrypt content into an EncryptedData envelope\n")
	fmt.Fprintf(os.Stderr, "  decrypt-data  symmetric-decrypt an EncryptedData envelope\n")
	fmt.Fprintf(os.Stderr, "  compress      build a CompressedData envelope\n")
	fmt.Fprintf(os.Stderr, "  decompress    open a CompressedData envelope\n")
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		return os.ReadFile("/dev/stdin")
	}
	return os.ReadFile(path)
}

func writeOutput(output string, data []byte) error {
	if output == "" || output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0600)
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyPath := fs.String("key", "", "path to PEM private key")
	certPath := fs.String("cert", "", "path to PEM certificate")
	in := fs.String("in", "-", "path to content to sign (- for stdin)")
	out := fs.String("out", "-", "path to write the SignedData envelope (- for stdout)")
	passphrase := fs.String("passphrase", "", "private key passphrase, if encrypted")
	detached := fs.Bool("detached", false, "produce a detached signature")
	headOut := fs.String("head-out", "", "path to write the detached head (detached only)")
	footOut := fs.String("foot-out", "", "path to write the detached foot (detached only)")
	fs.Parse(args)

	keyPEM, err := readFile(*keyPath)
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	certPEM, err := readFile(*certPath)
	if err != nil {
		return fmt.Errorf("reading certificate: %w", err)
	}
	content, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}

	signer, err := keystore.ParsePrivateKey(keyPEM, *passphrase)
	if err != nil {
		return fmt.Errorf("parsing private key: %w", err)
	}
	cert, err := keystore.ParseCertificate(certPEM)
	if err != nil {
		return fmt.Errorf("parsing certificate: %w", err)
	}

	sess := session.New()
	sess.Signer = signer
	if err := sess.SetSignerCertificate(cert.Raw); err != nil {
		return fmt.Errorf("binding certificate: %w", err)
	}
	sess.Content = content

	if *detached {
		headFile, err := os.Create(valueOr(*headOut, "head.der"))
		if err != nil {
			return fmt.Errorf("creating head output: %w", err)
		}
		defer headFile.Close()
		footFile, err := os.Create(valueOr(*footOut, "foot.der"))
		if err != nil {
			return fmt.Errorf("creating foot output: %w", err)
		}
		defer footFile.Close()

		if _, err := cms.EncodeSignedDataDetached(sess, headFile, footFile); err != nil {
			return fmt.Errorf("signing: %w", err)
		}
		slog.Info("signed (detached)", "content_bytes", len(content))
		return nil
	}

	signed, err := cms.EncodeSignedData(sess)
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}
	slog.Info("signed", "content_bytes", len(content), "signed_data_bytes", len(signed))
	return writeOutput(*out, signed)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "-", "path to the SignedData envelope (- for stdin)")
	contentPath := fs.String("content", "", "path to detached content, if the envelope carries no eContent")
	out := fs.String("out", "-", "path to write the verified content (- for stdout)")
	allowDegenerate := fs.Bool("allow-degenerate", false, "accept a SignerInfos-empty, certificates-only SignedData")
	fs.Parse(args)

	signedData, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading envelope: %w", err)
	}

	sess := session.New()
	sess.AllowDegenerateSignedData(*allowDegenerate)

	var content []byte
	if *contentPath != "" {
		detachedContent, err := readFile(*contentPath)
		if err != nil {
			return fmt.Errorf("reading detached content: %w", err)
		}
		content, err = cms.DecodeSignedDataDetached(signedData, detachedContent, sess)
		if err != nil {
			return fmt.Errorf("verifying: %w", err)
		}
	} else {
		content, err = cms.DecodeSignedData(signedData, sess)
		if err != nil {
			return fmt.Errorf("verifying: %w", err)
		}
	}

	subject := ""
	if sess.SignerCert != nil {
		subject = sess.SignerCert.Subject.String()
	}
	slog.Info("verified", "content_bytes", len(content), "signer_subject", subject)
	return writeOutput(*out, content)
}

func runEnvelope(args []string) error {
	fs := flag.NewFlagSet("envelope", flag.ExitOnError)
	certPath := fs.String("cert", "", "path to recipient PEM certificate")
	in := fs.String("in", "-", "path to content to encrypt (- for stdin)")
	out := fs.String("out", "-", "path to write the EnvelopedData envelope (- for stdout)")
	keyAgreement := fs.Bool("key-agreement", false, "use ECDH key agreement (KARI) instead of RSA key transport (KTRI)")
	fs.Parse(args)

	certPEM, err := readFile(*certPath)
	if err != nil {
		return fmt.Errorf("reading certificate: %w", err)
	}
	content, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	cert, err := keystore.ParseCertificate(certPEM)
	if err != nil {
		return fmt.Errorf("parsing certificate: %w", err)
	}

	sess := session.New()
	if err := sess.SetRecipientCertificate(cert.Raw); err != nil {
		return fmt.Errorf("binding certificate: %w", err)
	}
	sess.Content = content

	if *keyAgreement {
		ecPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("recipient certificate is not ECDSA, cannot use key agreement")
		}
		curve, err := ecdhCurveFor(ecPub)
		if err != nil {
			return err
		}
		ephemeral, err := curve.GenerateKey(sess.RNG)
		if err != nil {
			return fmt.Errorf("generating ephemeral key: %w", err)
		}
		sess.ECDHKey = ephemeral
	}

	enveloped, err := cms.EncodeEnvelopedData(sess)
	if err != nil {
		return fmt.Errorf("enveloping: %w", err)
	}
	slog.Info("enveloped", "content_bytes", len(content), "enveloped_data_bytes", len(enveloped), "key_agreement", *keyAgreement)
	return writeOutput(*out, enveloped)
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	keyPath := fs.String("key", "", "path to recipient PEM private key")
	certPath := fs.String("cert", "", "path to recipient PEM certificate")
	in := fs.String("in", "-", "path to the EnvelopedData envelope (- for stdin)")
	out := fs.String("out", "-", "path to write the decrypted content (- for stdout)")
	passphrase := fs.String("passphrase", "", "private key passphrase, if encrypted")
	fs.Parse(args)

	keyPEM, err := readFile(*keyPath)
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	certPEM, err := readFile(*certPath)
	if err != nil {
		return fmt.Errorf("reading certificate: %w", err)
	}
	envelopedData, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading envelope: %w", err)
	}

	signer, err := keystore.ParsePrivateKey(keyPEM, *passphrase)
	if err != nil {
		return fmt.Errorf("parsing private key: %w", err)
	}
	cert, err := keystore.ParseCertificate(certPEM)
	if err != nil {
		return fmt.Errorf("parsing certificate: %w", err)
	}

	sess := session.New()
	if err := sess.SetRecipientCertificate(cert.Raw); err != nil {
		return fmt.Errorf("binding certificate: %w", err)
	}
	if rsaDecrypter, ok := signer.(crypto.Decrypter); ok {
		sess.Decrypter = rsaDecrypter
	}
	if ecPriv, ok := signer.(*ecdsa.PrivateKey); ok {
		ecdhPriv, err := ecPriv.ECDH()
		if err != nil {
			return fmt.Errorf("recipient EC key is not usable for ECDH: %w", err)
		}
		sess.ECDHKey = ecdhPriv
	}

	content, err := cms.DecodeEnvelopedData(envelopedData, sess)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	slog.Info("opened", "content_bytes", len(content))
	return writeOutput(*out, content)
}

func ecdhCurveFor(pub *ecdsa.PublicKey) (ecdh.Curve, error) {
	switch pub.Curve.Params().Name {
	case "P-256":
		return ecdh.P256(), nil
	case "P-384":
		return ecdh.P384(), nil
	case "P-521":
		return ecdh.P521(), nil
	}
	return nil, fmt.Errorf("unsupported EC curve %s", pub.Curve.Params().Name)
}

func runEncryptData(args []string) error {
	fs := flag.NewFlagSet("encrypt-data", flag.ExitOnError)
	keyHex := fs.String("key", "", "symmetric content-encryption key, hex-encoded")
	in := fs.String("in", "-", "path to content to encrypt (- for stdin)")
	out := fs.String("out", "-", "path to write the EncryptedData envelope (- for stdout)")
	fs.Parse(args)

	key, err := hex.DecodeString(*keyHex)
	if err != nil {
		return fmt.Errorf("parsing key: %w", err)
	}
	content, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}

	sess := session.New()
	sess.SymmetricKey = key
	sess.Content = content
	defer sess.Zero()

	encrypted, err := cms.EncodeEncryptedData(sess)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}
	slog.Info("encrypted", "content_bytes", len(content), "encrypted_data_bytes", len(encrypted))
	return writeOutput(*out, encrypted)
}

func runDecryptData(args []string) error {
	fs := flag.NewFlagSet("decrypt-data", flag.ExitOnError)
	keyHex := fs.String("key", "", "symmetric content-encryption key, hex-encoded")
	in := fs.String("in", "-", "path to the EncryptedData envelope (- for stdin)")
	out := fs.String("out", "-", "path to write the decrypted content (- for stdout)")
	fs.Parse(args)

	key, err := hex.DecodeString(*keyHex)
	if err != nil {
		return fmt.Errorf("parsing key: %w", err)
	}
	encryptedData, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading envelope: %w", err)
	}

	sess := session.New()
	sess.SymmetricKey = key
	defer sess.Zero()

	content, err := cms.DecodeEncryptedData(encryptedData, sess)
	if err != nil {
		return fmt.Errorf("decrypting: %w", err)
	}
	slog.Info("decrypted", "content_bytes", len(content))
	return writeOutput(*out, content)
}

func runCompress(args []string) error {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	in := fs.String("in", "-", "path to content to compress (- for stdin)")
	out := fs.String("out", "-", "path to write the CompressedData envelope (- for stdout)")
	fs.Parse(args)

	content, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}

	sess := session.New()
	sess.Content = content

	compressed, err := cms.EncodeCompressedData(sess)
	if err != nil {
		return fmt.Errorf("compressing: %w", err)
	}
	slog.Info("compressed", "content_bytes", len(content), "compressed_data_bytes", len(compressed))
	return writeOutput(*out, compressed)
}

func runDecompress(args []string) error {
	fs := flag.NewFlagSet("decompress", flag.ExitOnError)
	in := fs.String("in", "-", "path to the CompressedData envelope (- for stdin)")
	out := fs.String("out", "-", "path to write the decompressed content (- for stdout)")
	fs.Parse(args)

	compressedData, err := readFile(*in)
	if err != nil {
		return fmt.Errorf("reading envelope: %w", err)
	}

	sess := session.New()
	content, err := cms.DecodeCompressedData(compressedData, sess)
	if err != nil {
		return fmt.Errorf("decompressing: %w", err)
	}
	slog.Info("decompressed", "content_bytes", len(content))
	return writeOutput(*out, content)
}
