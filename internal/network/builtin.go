package network

// builtins is the compiled-in network table, in display order.
// These are never persisted and never removable.
var builtins = []Config{
	{
		ChainID: 81, ChainIDHex: "0x51",
		Name: "WATTx Mainnet", Symbol: "WATTx", Decimals: 8,
		RPCURLs:     []string{"http://localhost:3889", "https://rpc.wattxchange.app"},
		ExplorerURL: "https://wattxscan.io", ExplorerAPIURL: "https://api.wattxscan.io",
		Family:          FamilyUTXO,
		SupportsStaking: true, SupportsMining: true,
		SupportsInscriptions: true, InscriptionType: InscriptionOrdinals,
		LogoURL: "https://wattxchange.app/logo.png",
	},
	{
		ChainID: 8889, ChainIDHex: "0x22b9",
		Name: "WATTx Testnet", Symbol: "tWATTx", Decimals: 8,
		RPCURLs:     []string{"http://localhost:13889", "https://testnet-rpc.wattxchange.app"},
		ExplorerURL: "https://testnet.wattxscan.io", ExplorerAPIURL: "https://testnet-api.wattxscan.io",
		IsTestnet:       true,
		Family:          FamilyUTXO,
		SupportsStaking: true, SupportsMining: true,
		SupportsInscriptions: true, InscriptionType: InscriptionOrdinals,
		LogoURL: "https://wattxchange.app/logo.png",
	},
	{
		ChainID: 82, ChainIDHex: "0x52",
		Name: "QTUM Mainnet", Symbol: "QTUM", Decimals: 8,
		RPCURLs:         []string{"https://janus.qiswap.com/api/"},
		ExplorerURL:     "https://qtum.info",
		Family:          FamilyUTXO,
		SupportsStaking: true,
		LogoURL:         "https://qtum.org/images/qtum-logo.png",
	},
	{
		ChainID: 210, ChainIDHex: "0xd2",
		Name: "Bitnet", Symbol: "BTN", Decimals: 18,
		RPCURLs:     []string{"https://rpc.bitnet.money"},
		ExplorerURL: "https://explorer.bitnet.money",
		Family:      FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://bitnet.money/logo.png",
	},
	{
		ChainID: 146, ChainIDHex: "0x92",
		Name: "Sonic", Symbol: "S", Decimals: 18,
		RPCURLs:     []string{"https://sonic.drpc.org", "https://rpc.soniclabs.com"},
		ExplorerURL: "https://sonicscan.org",
		Family:      FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://soniclabs.com/logo.png",
	},
	{
		ChainID: 800001, ChainIDHex: "0xc3501",
		Name: "OctaSpace", Symbol: "OCTA", Decimals: 18,
		RPCURLs:        []string{"https://rpc.octa.space"},
		ExplorerURL:    "https://explorer.octa.space",
		Family:         FamilyEVM,
		SupportsMining: true,
		LogoURL:        "https://octa.space/logo.png",
	},
	{
		ChainID: 1313114, ChainIDHex: "0x14095a",
		Name: "Etho Protocol", Symbol: "ETHO", Decimals: 18,
		RPCURLs:     []string{"https://rpc.ethoprotocol.com"},
		ExplorerURL: "https://explorer.ethoprotocol.com",
		Family:      FamilyEVM,
		LogoURL:     "https://ethoprotocol.com/logo.png",
	},
	{
		ChainID: 2330, ChainIDHex: "0x91a",
		Name: "Altcoinchain", Symbol: "ALT", Decimals: 18,
		RPCURLs:        []string{"https://rpc.altcoinchain.org"},
		ExplorerURL:    "https://expedition.altcoinchain.org",
		Family:         FamilyEVM,
		SupportsMining: true,
		LogoURL:        "https://altcoinchain.org/logo.png",
	},
	{
		ChainID: 1, ChainIDHex: "0x1",
		Name: "Ethereum", Symbol: "ETH", Decimals: 18,
		RPCURLs: []string{
			"https://eth.llamarpc.com",
			"https://ethereum.publicnode.com",
			"https://rpc.ankr.com/eth",
		},
		ExplorerURL: "https://etherscan.io", ExplorerAPIURL: "https://api.etherscan.io/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		SupportsInscriptions: true, InscriptionType: InscriptionOrdinals,
		LogoURL: "https://ethereum.org/logo.png",
	},
	{
		ChainID: 56, ChainIDHex: "0x38",
		Name: "BNB Smart Chain", Symbol: "BNB", Decimals: 18,
		RPCURLs: []string{
			"https://bsc-dataseed.binance.org",
			"https://bsc-dataseed1.defibit.io",
			"https://bsc.publicnode.com",
		},
		ExplorerURL: "https://bscscan.com", ExplorerAPIURL: "https://api.bscscan.com/api",
		Family:               FamilyEVM,
		SupportsInscriptions: true, InscriptionType: InscriptionBRC20,
		LogoURL: "https://bscscan.com/images/svg/brands/bnb.svg",
	},
	{
		ChainID: 137, ChainIDHex: "0x89",
		Name: "Polygon", Symbol: "MATIC", Decimals: 18,
		RPCURLs: []string{
			"https://polygon-rpc.com",
			"https://polygon.llamarpc.com",
			"https://polygon.publicnode.com",
		},
		ExplorerURL: "https://polygonscan.com", ExplorerAPIURL: "https://api.polygonscan.com/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://polygonscan.com/images/svg/brands/polygon.svg",
	},
	{
		ChainID: 42161, ChainIDHex: "0xa4b1",
		Name: "Arbitrum One", Symbol: "ETH", Decimals: 18,
		RPCURLs: []string{
			"https://arb1.arbitrum.io/rpc",
			"https://arbitrum.llamarpc.com",
			"https://arbitrum.publicnode.com",
		},
		ExplorerURL: "https://arbiscan.io", ExplorerAPIURL: "https://api.arbiscan.io/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://arbiscan.io/images/svg/brands/arbitrum.svg",
	},
	{
		ChainID: 10, ChainIDHex: "0xa",
		Name: "Optimism", Symbol: "ETH", Decimals: 18,
		RPCURLs: []string{
			"https://mainnet.optimism.io",
			"https://optimism.llamarpc.com",
			"https://optimism.publicnode.com",
		},
		ExplorerURL: "https://optimistic.etherscan.io", ExplorerAPIURL: "https://api-optimistic.etherscan.io/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://optimistic.etherscan.io/images/svg/brands/optimism.svg",
	},
	{
		ChainID: 43114, ChainIDHex: "0xa86a",
		Name: "Avalanche C-Chain", Symbol: "AVAX", Decimals: 18,
		RPCURLs: []string{
			"https://api.avax.network/ext/bc/C/rpc",
			"https://avalanche.publicnode.com",
			"https://avalanche.drpc.org",
		},
		ExplorerURL: "https://snowtrace.io", ExplorerAPIURL: "https://api.snowtrace.io/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://snowtrace.io/images/svg/brands/avalanche.svg",
	},
	{
		ChainID: 8453, ChainIDHex: "0x2105",
		Name: "Base", Symbol: "ETH", Decimals: 18,
		RPCURLs: []string{
			"https://mainnet.base.org",
			"https://base.llamarpc.com",
			"https://base.publicnode.com",
		},
		ExplorerURL: "https://basescan.org", ExplorerAPIURL: "https://api.basescan.org/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://basescan.org/images/svg/brands/base.svg",
	},
	{
		ChainID: 250, ChainIDHex: "0xfa",
		Name: "Fantom Opera", Symbol: "FTM", Decimals: 18,
		RPCURLs: []string{
			"https://rpc.ftm.tools",
			"https://fantom.publicnode.com",
			"https://fantom.drpc.org",
		},
		ExplorerURL: "https://ftmscan.com", ExplorerAPIURL: "https://api.ftmscan.com/api",
		Family:  FamilyEVM,
		LogoURL: "https://ftmscan.com/images/svg/brands/fantom.svg",
	},
	{
		ChainID: 25, ChainIDHex: "0x19",
		Name: "Cronos", Symbol: "CRO", Decimals: 18,
		RPCURLs: []string{
			"https://evm.cronos.org",
			"https://cronos.publicnode.com",
		},
		ExplorerURL: "https://cronoscan.com", ExplorerAPIURL: "https://api.cronoscan.com/api",
		Family: FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://cronoscan.com/images/svg/brands/cronos.svg",
	},
	{
		ChainID: 324, ChainIDHex: "0x144",
		Name: "zkSync Era", Symbol: "ETH", Decimals: 18,
		RPCURLs: []string{
			"https://mainnet.era.zksync.io",
			"https://zksync.drpc.org",
		},
		ExplorerURL: "https://explorer.zksync.io",
		Family:      FamilyEVM, SupportsEIP1559: true,
		LogoURL: "https://explorer.zksync.io/images/zksync-logo.svg",
	},
}

// Builtins returns a copy of the compiled-in network table.
func Builtins() []Config {
	out := make([]Config, len(builtins))
	copy(out, builtins)
	return out
}
