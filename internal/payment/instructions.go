package payment

import "strings"

const (
	// Manual bank transfer
	MethodBCATransfer     = "BCA_TRANSFER"
	MethodBNITransfer     = "BNI_TRANSFER"
	MethodMandiriTransfer = "MANDIRI_TRANSFER"

	// QRIS
	MethodQRIS = "QRIS"

	// Cash on delivery
	MethodCOD = "COD"
)

var InstructionMap = map[string][]string{
	MethodBCATransfer: {
		"Buka aplikasi BCA Mobile, KlikBCA, atau ATM BCA",
		"Pilih menu Transfer → Ke Rekening BCA",
		"Masukkan nomor rekening {{account_number}} a.n. {{account_name}}",
		"Masukkan nominal transfer sebesar {{amount}}",
		"Simpan bukti transfer dan unggah pada halaman pesanan",
	},

	MethodBNITransfer: {
		"Buka aplikasi BNI Mobile Banking atau ATM BNI",
		"Pilih menu Transfer → Antar Rekening BNI",
		"Masukkan nomor rekening {{account_number}} a.n. {{account_name}}",
		"Periksa detail pembayaran dengan nominal {{amount}}",
		"Simpan bukti transfer dan unggah pada halaman pesanan",
	},

	MethodMandiriTransfer: {
		"Buka aplikasi Livin' by Mandiri atau ATM Mandiri",
		"Pilih menu Transfer → Ke Rekening Mandiri",
		"Masukkan nomor rekening {{account_number}} a.n. {{account_name}}",
		"Pastikan nominal transfer {{amount}} sudah benar",
		"Simpan bukti transfer dan unggah pada halaman pesanan",
	},

	MethodQRIS: {
		"Buka aplikasi e-wallet atau mobile banking yang mendukung QRIS",
		"Pilih menu Scan / Bayar",
		"Pindai kode QR yang ditampilkan",
		"Periksa nominal pembayaran {{amount}}",
		"Simpan bukti pembayaran dan unggah pada halaman pesanan",
	},

	MethodCOD: {
		"Pesanan akan dikirim ke alamat tujuan",
		"Siapkan uang tunai sebesar {{amount}} saat kurir tiba",
		"Lakukan pembayaran langsung kepada kurir",
		"Simpan bukti pembayaran dari kurir",
	},
}

// RenderInstructions fills {{placeholders}} in the instruction lines for a
// payment method slug. Unknown slugs return nil.
func RenderInstructions(slug string, vars map[string]string) []string {
	lines, ok := InstructionMap[slug]
	if !ok {
		return nil
	}

	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		for key, val := range vars {
			line = strings.ReplaceAll(line, "{{"+key+"}}", val)
		}
		rendered = append(rendered, line)
	}

	return rendered
}
