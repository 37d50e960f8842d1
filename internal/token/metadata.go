package token

import (
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MetadataProgramID owns the Metaplex token metadata accounts
var MetadataProgramID = solana.MustPublicKeyFromBase58(constants.MetadataProgram)

// metadataKeyV1 tags a MetadataV1 account
const metadataKeyV1 uint8 = 4

// Metadata is the leading, fixed-order part of a Metaplex metadata account.
// Fields after the seller fee (creators, collection, uses) are not read.
type Metadata struct {
	Key                  uint8
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// MetadataAddress derives the metadata PDA of a mint:
// seeds ["metadata", metadata program id, mint] under the metadata program
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			MetadataProgramID[:],
			mint[:],
		},
		MetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return addr, nil
}

// DecodeMetadata decodes a metadata account and trims the null padding of its
// string fields
func DecodeMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := bin.NewBorshDecoder(data).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataNotFound, err)
	}
	if md.Key != metadataKeyV1 {
		return nil, fmt.Errorf("%w: unexpected account key %d", ErrMetadataNotFound, md.Key)
	}

	md.Name = TrimPadding(md.Name)
	md.Symbol = TrimPadding(md.Symbol)
	md.URI = TrimPadding(md.URI)
	return &md, nil
}

// DecodeMintDecimals reads the decimals of an SPL mint account
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < token.MINT_SIZE {
		return 0, fmt.Errorf("%w: need %d bytes, got %d", ErrMintDecode, token.MINT_SIZE, len(data))
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(data[:token.MINT_SIZE]).Decode(&mint); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMintDecode, err)
	}
	if !mint.IsInitialized {
		return 0, fmt.Errorf("%w: mint not initialized", ErrMintDecode)
	}
	return mint.Decimals, nil
}

// DecodeTokenAccountMint reads the mint of an SPL token account
func DecodeTokenAccountMint(data []byte) (solana.PublicKey, error) {
	var acct token.Account
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return solana.PublicKey{}, fmt.Errorf("decode token account: %w", err)
	}
	return acct.Mint, nil
}

// TrimPadding strips the NUL bytes Metaplex pads fixed-width strings with
func TrimPadding(s string) string {
	return strings.Trim(s, "\x00")
}
