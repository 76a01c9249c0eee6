package core

// Status lines shown in the grid. The product UI is Spanish.
const (
	msgLoadingTables   = "Consultando tablas disponibles..."
	msgTablesFailed    = "No se pudieron obtener las tablas."
	msgNoTables        = "No hay tablas configuradas."
	msgUnknownTable    = "La tabla seleccionada no existe."
	msgSelectTable     = "Selecciona una tabla para comenzar."
	msgLoadingRows     = "Cargando información..."
	msgRowsFailed      = "No se pudo cargar la tabla."
	msgRowMissing      = "El registro ya no está en la página actual."
	msgNoChanges       = "No hay cambios para guardar."
	msgSaving          = "Guardando cambios..."
	msgSaved           = "Registro actualizado correctamente."
	msgSaveFailed      = "No se pudo guardar el registro."
	msgDeleting        = "Eliminando registro..."
	msgDeleted         = "Registro eliminado."
	msgDeleteFailed    = "No se pudo eliminar el registro."
	msgNoImage         = "No hay imagen asociada a este registro."
	msgNotUploadField  = "Esta columna no admite archivos."
	msgUploadingImage  = "Subiendo imagen..."
	msgUploadingFile   = "Subiendo archivo..."
	msgImageUpdated    = "Imagen actualizada."
	msgFileUpdated     = "Archivo actualizado."
	msgImageFailed     = "No se pudo actualizar la imagen."
	msgFileFailed      = "No se pudo actualizar el archivo."
	msgExporting       = "Preparando CSV..."
	msgExportingXLSX   = "Preparando hoja de cálculo..."
	msgExported        = "CSV exportado."
	msgExportedXLSX    = "Hoja de cálculo exportada."
	msgExportFailed    = "No se pudo exportar la tabla."
	msgImporting       = "Importando CSV..."
	msgImported        = "Importación finalizada."
	msgImportFailed    = "No se pudo importar el archivo."
	msgNoImportFile    = "Selecciona un archivo CSV para importar."
	msgShowingRowsTmpl = "Mostrando %d registro(s) de %d."

	// DeletePrompt is the confirmation question for row deletion.
	DeletePrompt = "¿Deseas eliminar este registro? Esta acción es permanente."
)
